package timekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/internaltypes"
)

const defaultBaseURL = "https://api.timekit.io/v2"
const defaultUA = "bookingwidget/1.0"

// Client talks to the Timekit scheduling API. Credentials are applied with
// Configure before the first call.
type Client struct {
	http *http.Client
	base string
	ua   string

	mu    sync.RWMutex
	creds booking.Credentials
}

func New(baseURL string, hc *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		http: hc,
		base: strings.TrimRight(baseURL, "/"),
		ua:   defaultUA,
	}
}

func (c *Client) Configure(creds booking.Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
}

func (c *Client) credentials() booking.Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

func (c *Client) FindTime(ctx context.Context, q booking.FindTimeQuery) ([]booking.TimeSlot, error) {
	if len(q.Emails) == 0 {
		return nil, errors.New("findtime: at least one email is required")
	}
	body, err := encodeWithExtra(q, q.Extra)
	if err != nil {
		return nil, err
	}
	respBody, err := c.do(ctx, http.MethodPost, "/findtime", body)
	if err != nil {
		return nil, fmt.Errorf("findtime: %w", err)
	}

	var parsed struct {
		Data []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("findtime: parse response: %w", err)
	}
	out := make([]booking.TimeSlot, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		start, err := parseTime(d.Start)
		if err != nil {
			return nil, fmt.Errorf("findtime: slot start: %w", err)
		}
		end, err := parseTime(d.End)
		if err != nil {
			return nil, fmt.Errorf("findtime: slot end: %w", err)
		}
		out = append(out, booking.TimeSlot{Start: start, End: end})
	}
	return out, nil
}

func (c *Client) GetUserTimezone(ctx context.Context, q booking.TimezoneQuery) (int, error) {
	if q.Email == "" {
		return 0, errors.New("timezone: email is required")
	}
	path := "/users/timezone/" + url.PathEscape(q.Email)
	if len(q.Extra) > 0 {
		v := url.Values{}
		for k, val := range q.Extra {
			v.Set(k, fmt.Sprint(val))
		}
		path += "?" + v.Encode()
	}
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("timezone: %w", err)
	}
	var parsed struct {
		Data struct {
			Timezone  string  `json:"timezone"`
			UTCOffset float64 `json:"utc_offset"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, fmt.Errorf("timezone: parse response: %w", err)
	}
	return int(parsed.Data.UTCOffset), nil
}

func (c *Client) CreateEvent(ctx context.Context, req booking.EventRequest) (booking.Confirmation, error) {
	body, err := encodeWithExtra(req, req.Extra)
	if err != nil {
		return booking.Confirmation{}, err
	}
	respBody, err := c.do(ctx, http.MethodPost, "/events", body)
	if err != nil {
		return booking.Confirmation{}, fmt.Errorf("create event: %w", err)
	}
	var parsed struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return booking.Confirmation{}, fmt.Errorf("create event: parse response: %w", err)
	}
	conf := booking.Confirmation{Raw: parsed.Data}
	if id, ok := parsed.Data["id"].(string); ok {
		conf.ID = id
	}
	return conf, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	creds := c.credentials()
	if creds.Email == "" || creds.APIToken == "" {
		return nil, fmt.Errorf("%w: client is not configured with credentials", internaltypes.ErrTransport)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("user-agent", c.ua)
	hreq.Header.Set("accept", "application/json")
	if body != nil {
		hreq.Header.Set("content-type", "application/json")
	}
	if creds.App != "" {
		hreq.Header.Set("timekit-app", creds.App)
	}
	hreq.SetBasicAuth(creds.Email, creds.APIToken)

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internaltypes.ErrTransport, err)
	}
	defer hresp.Body.Close()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", internaltypes.ErrTransport, err)
	}
	if hresp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %w: http 404: %s", internaltypes.ErrTransport, internaltypes.ErrNotFound, strings.TrimSpace(string(respBody)))
	}
	if hresp.StatusCode < 200 || hresp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d: %s", internaltypes.ErrTransport, hresp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// encodeWithExtra marshals v and applies extra on top, key by key.
func encodeWithExtra(v any, extra map[string]any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return b, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, val := range extra {
		m[k] = val
	}
	return json.Marshal(m)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	return t, err
}
