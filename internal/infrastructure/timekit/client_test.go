package timekit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/internaltypes"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(srv.URL, srv.Client())
	c.Configure(booking.Credentials{App: "bookingjs", Email: "host@example.com", APIToken: "secret"})
	return c
}

func TestFindTime(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/findtime", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "host@example.com", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "bookingjs", r.Header.Get("Timekit-App"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"host@example.com"}, body["emails"])
		assert.Equal(t, "30 minutes", body["length"], "extra keys win")
		assert.Equal(t, "Europe/Copenhagen", body["timezone"])

		_, _ = io.WriteString(w, `{"data":[{"start":"2024-01-10T09:00:00Z","end":"2024-01-10T10:00:00Z"}]}`)
	})

	slots, err := c.FindTime(context.Background(), booking.FindTimeQuery{
		Emails: []string{"host@example.com"},
		Length: "1 hour",
		Extra:  map[string]any{"timezone": "Europe/Copenhagen", "length": "30 minutes"},
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)))
	assert.True(t, slots[0].End.Equal(time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)))
}

func TestFindTime_HTTPErrorIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"bad token"}`)
	})
	_, err := c.FindTime(context.Background(), booking.FindTimeQuery{Emails: []string{"host@example.com"}})
	assert.ErrorIs(t, err, internaltypes.ErrTransport)
	assert.ErrorContains(t, err, "401")
}

func TestGetUserTimezone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/timezone/host@example.com", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":{"timezone":"America/New_York","utc_offset":-5}}`)
	})
	off, err := c.GetUserTimezone(context.Background(), booking.TimezoneQuery{Email: "host@example.com"})
	require.NoError(t, err)
	assert.Equal(t, -5, off)
}

func TestGetUserTimezone_UnknownUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.GetUserTimezone(context.Background(), booking.TimezoneQuery{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, internaltypes.ErrNotFound)
	assert.ErrorIs(t, err, internaltypes.ErrTransport)
}

func TestCreateEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Host x Alice", body["what"])
		assert.Equal(t, []any{"host@example.com", "a@x.com"}, body["participants"])
		assert.Equal(t, "", body["description"])
		assert.Equal(t, "HQ", body["location"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":"evt_1","what":"Host x Alice"}}`)
	})
	conf, err := c.CreateEvent(context.Background(), booking.EventRequest{
		Start:        "2024-01-10T09:00:00Z",
		End:          "2024-01-10T10:00:00Z",
		What:         "Host x Alice",
		CalendarID:   "cal-1",
		Participants: []string{"host@example.com", "a@x.com"},
		Extra:        map[string]any{"location": "HQ"},
	})
	require.NoError(t, err)
	assert.Equal(t, "evt_1", conf.ID)
	assert.Equal(t, "Host x Alice", conf.Raw["what"])
}

func TestCreateEvent_ExtraOverridesGeneratedFields(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"data":{"id":"evt_2"}}`)
	})
	_, err := c.CreateEvent(context.Background(), booking.EventRequest{
		Start: "2024-01-10T09:00:00Z",
		End:   "2024-01-10T10:00:00Z",
		What:  "Host x Alice",
		Extra: map[string]any{"start": "2024-01-10T09:30:00Z", "what": "Intro call"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10T09:30:00Z", body["start"])
	assert.Equal(t, "2024-01-10T10:00:00Z", body["end"])
	assert.Equal(t, "Intro call", body["what"])
	assert.NotContains(t, body, "Extra")
}

func TestUnconfiguredClientFails(t *testing.T) {
	c := New("http://127.0.0.1:0", nil)
	_, err := c.CreateEvent(context.Background(), booking.EventRequest{})
	assert.ErrorIs(t, err, internaltypes.ErrTransport)
}

func TestNewDefaults(t *testing.T) {
	c := New("", nil)
	assert.Equal(t, defaultBaseURL, c.base)
	assert.Equal(t, 20*time.Second, c.http.Timeout)
}
