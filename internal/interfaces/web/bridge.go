package web

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/bookingwidget/internal/application/session"
	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/domain/calendar"
	"github.com/example/bookingwidget/internal/domain/timezone"
	"github.com/example/bookingwidget/internal/infrastructure/config"
	"github.com/example/bookingwidget/internal/internaltypes"
)

const (
	writeTimeout   = 5 * time.Second
	controlTimeout = 3 * time.Second
)

// Bridge renders the widget into a browser over one websocket connection. It
// is both the calendar view and the widget surface of that mount.
type Bridge struct {
	conn *websocket.Conn
	tmpl *template.Template
	log  *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	onClick  func(booking.TimeSlot)
	onResize func(int)
	host     string
	form     booking.Form
	pending  map[int64]chan inbound
	nextID   atomic.Int64
	closed   chan struct{}
	closeOne sync.Once
}

func NewBridge(conn *websocket.Conn, tmpl *template.Template, log *slog.Logger) *Bridge {
	return &Bridge{
		conn:    conn,
		tmpl:    tmpl,
		log:     log,
		pending: make(map[int64]chan inbound),
		closed:  make(chan struct{}),
	}
}

func (b *Bridge) send(msg outbound) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := b.conn.WriteJSON(msg); err != nil {
		b.log.Debug("websocket write failed", "type", msg.Type, "err", err)
		return fmt.Errorf("%w: %v", internaltypes.ErrTransport, err)
	}
	return nil
}

func (b *Bridge) sendFragment(typ, name string, data any) {
	html, err := renderFragment(b.tmpl, name, data)
	if err != nil {
		b.log.Error("render fragment", "template", name, "err", err)
		return
	}
	_ = b.send(outbound{Type: typ, HTML: html})
}

// close releases pending control calls. The connection itself is owned by the
// caller.
func (b *Bridge) close() {
	b.closeOne.Do(func() { close(b.closed) })
}

// calendar.View

func (b *Bridge) Construct(opts calendar.Options) error {
	options := make(map[string]any, len(opts.Display)+2)
	for k, v := range opts.Display {
		options[k] = v
	}
	if _, ok := options["defaultView"]; !ok {
		options["defaultView"] = opts.DefaultView.FullCalendarName()
	}
	options["height"] = opts.Height
	return b.send(outbound{Type: msgConstruct, Options: options})
}

func (b *Bridge) ChangeView(mode calendar.ViewMode) {
	_ = b.send(outbound{Type: msgChangeView, View: mode.FullCalendarName()})
}

func (b *Bridge) SetHeight(px int) {
	_ = b.send(outbound{Type: msgSetHeight, Height: px})
}

func (b *Bridge) AddEventSource(slots []booking.TimeSlot) {
	events := make([]eventSource, 0, len(slots))
	for _, s := range slots {
		events = append(events, eventSource{
			Start: s.Start.Format(time.RFC3339),
			End:   s.End.Format(time.RFC3339),
		})
	}
	_ = b.send(outbound{Type: msgEventSource, Events: events})
}

func (b *Bridge) MarkPopulated() { _ = b.send(outbound{Type: msgMarkPopulated}) }

func (b *Bridge) OnSlotClick(fn func(booking.TimeSlot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onClick = fn
}

func (b *Bridge) OnResize(fn func(int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onResize = fn
}

// Control runs a calendar method in the browser and waits for its result.
func (b *Bridge) Control(args ...any) (any, error) {
	id := b.nextID.Add(1)
	reply := make(chan inbound, 1)
	b.mu.Lock()
	b.pending[id] = reply
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := b.send(outbound{Type: msgControl, ID: id, Args: args}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		if r.Error != "" {
			return nil, errors.New(r.Error)
		}
		return r.Result, nil
	case <-time.After(controlTimeout):
		return nil, fmt.Errorf("%w: calendar control timed out", internaltypes.ErrTransport)
	case <-b.closed:
		return nil, fmt.Errorf("%w: connection closed", internaltypes.ErrTransport)
	}
}

func (b *Bridge) slotClicked(s booking.TimeSlot) {
	b.mu.Lock()
	fn := b.onClick
	b.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (b *Bridge) resized(width int) {
	b.mu.Lock()
	fn := b.onResize
	b.mu.Unlock()
	if fn != nil {
		fn(width)
	}
}

func (b *Bridge) controlResult(msg inbound) {
	b.mu.Lock()
	reply, ok := b.pending[msg.ID]
	b.mu.Unlock()
	if !ok {
		return
	}
	// A repeated id must not stall the read loop.
	select {
	case reply <- msg:
	default:
	}
}

// widget.Surface

func (b *Bridge) Attach(cfg config.Widget) {
	b.mu.Lock()
	b.host = cfg.Name
	b.mu.Unlock()
	html, err := renderFragment(b.tmpl, "widget_root", nil)
	if err != nil {
		b.log.Error("render fragment", "template", "widget_root", "err", err)
		return
	}
	_ = b.send(outbound{
		Type:   msgAttach,
		Target: cfg.TargetEl,
		HTML:   html,
		Styles: stylesheets(cfg.Styling),
	})
}

func (b *Bridge) Reveal() { _ = b.send(outbound{Type: msgReveal}) }

type bookingPageData struct {
	Form booking.Form
	Host string
}

func (b *Bridge) ShowBookingPage(form booking.Form) {
	b.mu.Lock()
	b.form = form
	host := b.host
	b.mu.Unlock()
	b.sendFragment(msgBookingPage, "booking_page", bookingPageData{Form: form, Host: host})
}

func (b *Bridge) HideBookingPage() { _ = b.send(outbound{Type: msgHideBooking}) }

func (b *Bridge) SetSubmitState(state session.ButtonState) {
	b.mu.Lock()
	form := b.form
	b.mu.Unlock()
	label := form.SubmitText
	switch state {
	case session.ButtonLoading:
		label = form.LoadingText
	case session.ButtonSuccess:
		label = ""
	}
	_ = b.send(outbound{Type: msgSubmitState, State: state.String(), Label: label})
}

func (b *Bridge) ShowTimezoneHelper(d *timezone.Display) {
	b.sendFragment(msgTimezoneHelper, "timezone_helper", d)
}

func (b *Bridge) ShowAvatar(url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	b.sendFragment(msgAvatar, "avatar", url)
}
