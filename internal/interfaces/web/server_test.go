package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/infrastructure/config"
	"github.com/example/bookingwidget/internal/infrastructure/metrics"
	"github.com/example/bookingwidget/internal/infrastructure/oplog"
)

type stubClient struct {
	mu      sync.Mutex
	creds   booking.Credentials
	finds   []booking.FindTimeQuery
	creates []booking.EventRequest
}

func (c *stubClient) Configure(creds booking.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

func (c *stubClient) FindTime(_ context.Context, q booking.FindTimeQuery) ([]booking.TimeSlot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finds = append(c.finds, q)
	return []booking.TimeSlot{{
		Start: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
	}}, nil
}

func (c *stubClient) GetUserTimezone(context.Context, booking.TimezoneQuery) (int, error) {
	return 2, nil
}

func (c *stubClient) CreateEvent(_ context.Context, req booking.EventRequest) (booking.Confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates = append(c.creates, req)
	return booking.Confirmation{ID: "evt-1"}, nil
}

type sliceSink struct {
	mu      sync.Mutex
	entries []oplog.Entry
}

func (s *sliceSink) Record(_ context.Context, e oplog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *sliceSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *sliceSink) all() []oplog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]oplog.Entry(nil), s.entries...)
}

type testEnv struct {
	ts     *httptest.Server
	client *stubClient
	sink   *sliceSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithBase(t, config.Defaults())
}

func newTestEnvWithBase(t *testing.T, base config.Widget) *testEnv {
	t.Helper()
	env := &testEnv{client: &stubClient{}, sink: &sliceSink{}}
	reg := prometheus.NewRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &Server{
		Base:      base,
		NewClient: func() booking.SchedulingClient { return env.client },
		Cookies:   NewVisitorCookies(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)),
		Log:       log,
		Operator:  oplog.Operator(log, env.sink),
		Metrics:   metrics.NewWidget(reg),
		Gatherer:  reg,
	}
	h, err := srv.Routes()
	require.NoError(t, err)
	env.ts = httptest.NewServer(h)
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) dial(t *testing.T, cookies ...*http.Cookie) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	header := http.Header{}
	for _, c := range cookies {
		header.Add("Cookie", c.String())
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil returns the first message of type typ, skipping others.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) outbound {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg outbound
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", typ)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestHomeIssuesVisitorCookie(t *testing.T) {
	env := newTestEnv(t)

	res, err := http.Get(env.ts.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `id="bookingjs"`)
	assert.Contains(t, string(body), "/static/bookingwidget.js")
	require.Len(t, res.Cookies(), 1)
	cookie := res.Cookies()[0]
	assert.Equal(t, visitorCookie, cookie.Name)

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/", nil)
	req.AddCookie(cookie)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Empty(t, res.Cookies(), "valid cookie is kept")
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	res, err := http.Get(env.ts.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Contains(t, string(body), "bookingwidget_mounts_active")

	res, err = http.Get(env.ts.URL + "/static/bookingwidget.css")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestWidgetBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "init",
		"config": map[string]any{"name": "Marty", "email": "marty@timekit.io", "apiToken": "tok"},
	}))
	attach := readUntil(t, conn, msgAttach)
	assert.Equal(t, "#bookingjs", attach.Target)
	assert.Len(t, attach.Styles, 3)
	assert.Contains(t, attach.HTML, "empty-calendar")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "load", "width": 1024, "tzOffset": 0}))
	construct := readUntil(t, conn, msgConstruct)
	assert.Equal(t, "agendaWeek", construct.Options["defaultView"])
	assert.Equal(t, float64(550), construct.Options["height"])

	source := readUntil(t, conn, msgEventSource)
	require.Len(t, source.Events, 1)
	assert.Equal(t, "2024-01-10T09:00:00Z", source.Events[0].Start)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "slotClick",
		"slot": map[string]string{"start": "2024-01-10T09:00:00Z", "end": "2024-01-10T10:00:00Z"},
	}))
	page := readUntil(t, conn, msgBookingPage)
	assert.Contains(t, page.HTML, "10. January 2024")
	assert.Contains(t, page.HTML, "9:00am to 10:00am")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "submit",
		"values": map[string]string{"name": "Alice", "email": "alice@example.com"},
	}))
	loading := readUntil(t, conn, msgSubmitState)
	assert.Equal(t, "loading", loading.State)
	assert.Equal(t, "Wait..", loading.Label)
	success := readUntil(t, conn, msgSubmitState)
	assert.Equal(t, "success", success.State)

	env.client.mu.Lock()
	defer env.client.mu.Unlock()
	assert.Equal(t, booking.Credentials{App: "bookingjs", Email: "marty@timekit.io", APIToken: "tok"}, env.client.creds)
	require.Len(t, env.client.creates, 1)
	assert.Equal(t, "Marty x Alice", env.client.creates[0].What)
	assert.Equal(t, "2024-01-10T10:00:00Z", env.client.creates[0].End)
}

func TestWidgetTimezoneHelper(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "init",
		"config": map[string]any{"name": "Marty", "email": "marty@timekit.io"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "load", "width": 320, "tzOffset": 0}))

	placeholder := readUntil(t, conn, msgTimezoneHelper)
	assert.Contains(t, placeholder.HTML, "Loading...")
	helper := readUntil(t, conn, msgTimezoneHelper)
	assert.Contains(t, helper.HTML, "2 hours behind Marty")
}

func TestWidgetRejectsMissingConfig(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "init", "config": nil}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg outbound
	assert.Error(t, conn.ReadJSON(&msg), "connection closes without rendering")
	assert.Equal(t, 1, env.sink.len())
}

func TestWidgetCalendarEscapeHatch(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "init",
		"config": map[string]any{"name": "Marty", "email": "marty@timekit.io"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "load", "width": 1024}))
	readUntil(t, conn, msgConstruct)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "calendar", "id": 7, "args": []any{"getView"}}))
	control := readUntil(t, conn, msgControl)
	assert.Equal(t, []any{"getView"}, control.Args)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "controlResult", "id": control.ID, "result": "agendaWeek"}))

	result := readUntil(t, conn, msgCalendarResult)
	assert.Equal(t, int64(7), result.ID)
	assert.True(t, result.OK)
	assert.Equal(t, "agendaWeek", result.Result)
}

func TestWidgetBooksOnlyOfferedSlots(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "init",
		"config": map[string]any{"name": "Marty", "email": "marty@timekit.io", "apiToken": "tok"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "load", "width": 1024, "tzOffset": 0}))
	readUntil(t, conn, msgEventSource)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "slotClick",
		"slot": map[string]string{"start": "2030-05-05T03:00:00Z", "end": "2030-05-05T04:00:00Z"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "slotClick",
		"slot": map[string]string{"start": "2024-01-10T09:00:00Z", "end": "2024-01-10T10:00:00Z"},
	}))
	page := readUntil(t, conn, msgBookingPage)
	assert.Contains(t, page.HTML, "9:00am to 10:00am", "the unoffered slot opened no page")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "submit",
		"values": map[string]string{
			"name":  "Alice",
			"email": "alice@example.com",
			"start": "2031-01-01T00:00:00Z",
			"end":   "2031-01-02T00:00:00Z",
		},
	}))
	readUntil(t, conn, msgSubmitState)
	success := readUntil(t, conn, msgSubmitState)
	assert.Equal(t, "success", success.State)

	env.client.mu.Lock()
	defer env.client.mu.Unlock()
	require.Len(t, env.client.creates, 1)
	assert.Equal(t, "2024-01-10T09:00:00Z", env.client.creates[0].Start)
	assert.Equal(t, "2024-01-10T10:00:00Z", env.client.creates[0].End)
}

func TestWidgetVisitorCannotRedirectServerCredentials(t *testing.T) {
	base := config.Defaults()
	base.Name = "Marty"
	base.Email = "marty@timekit.io"
	base.APIToken = "server-token"
	env := newTestEnvWithBase(t, base)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "init",
		"config": map[string]any{
			"email":    "doc@timekit.io",
			"findTime": map[string]any{"emails": []string{"doc@timekit.io"}},
		},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "load", "width": 1024}))
	readUntil(t, conn, msgEventSource)

	env.client.mu.Lock()
	defer env.client.mu.Unlock()
	assert.Equal(t, booking.Credentials{App: "bookingjs", Email: "marty@timekit.io", APIToken: "server-token"}, env.client.creds)
	require.Len(t, env.client.finds, 1)
	assert.Equal(t, []string{"marty@timekit.io"}, env.client.finds[0].Emails)
}

func TestWidgetOperatorEntriesCarryMountAndVisitor(t *testing.T) {
	env := newTestEnv(t)
	res, err := http.Get(env.ts.URL + "/")
	require.NoError(t, err)
	res.Body.Close()
	require.Len(t, res.Cookies(), 1)

	conn := env.dial(t, res.Cookies()[0])
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "init", "config": "not an object"}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg outbound
	require.Error(t, conn.ReadJSON(&msg))

	entries := env.sink.all()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].Attrs["mount_id"])
	assert.NotEmpty(t, entries[0].Attrs["visitor"])
	assert.Equal(t, "operator", entries[0].Attrs["channel"])
}
