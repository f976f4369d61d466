// Package widget orchestrates one mounted booking widget: startup order,
// scheduling-service calls and the booking session. Every state change runs on
// a single loop goroutine; scheduling calls run concurrently and deliver their
// results back to the loop as events.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/bookingwidget/internal/application/availability"
	"github.com/example/bookingwidget/internal/application/session"
	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/domain/calendar"
	"github.com/example/bookingwidget/internal/domain/timezone"
	"github.com/example/bookingwidget/internal/infrastructure/config"
	"github.com/example/bookingwidget/internal/infrastructure/metrics"
	"github.com/example/bookingwidget/internal/internaltypes"
)

// Surface is the widget's mounted markup outside the calendar itself.
type Surface interface {
	// Attach mounts the widget root into the configured target element.
	Attach(cfg config.Widget)
	// Reveal marks the root visible once the calendar exists.
	Reveal()
	ShowBookingPage(form booking.Form)
	HideBookingPage()
	SetSubmitState(state session.ButtonState)
	// ShowTimezoneHelper renders the helper; nil renders the loading placeholder.
	ShowTimezoneHelper(d *timezone.Display)
	ShowAvatar(url string)
}

type Deps struct {
	Client  booking.SchedulingClient
	View    calendar.View
	Surface Surface
	// Logger is the operator-facing channel.
	Logger  *slog.Logger
	Metrics *metrics.Widget
}

// Snapshot is a read-only view of the controller for inspection and tests.
type Snapshot struct {
	Mounted  bool
	Loaded   bool
	Calendar bool
	State    session.State
	Button   session.ButtonState
	Slot     *booking.TimeSlot
	Slots    int
	Empty    bool
	Attempts int
}

const eventBuffer = 64

type Controller struct {
	deps Deps
	log  *slog.Logger

	mu      sync.Mutex
	events  chan Event
	done    chan struct{}
	cancel  context.CancelFunc
	mounted bool

	// Owned by the loop goroutine.
	cfg           config.Widget
	session       *session.Session
	store         *availability.Store
	loaded        bool
	calendarBuilt bool
	loc           *time.Location
	viewerOffset  int
	escListening  bool
}

func New(deps Deps) *Controller {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{deps: deps, log: log, loc: time.UTC}
}

// Init parses a browser-supplied configuration object and mounts the widget.
// Invalid input is logged once and leaves the widget untouched.
func (c *Controller) Init(ctx context.Context, base config.Widget, raw []byte) error {
	supplied, err := config.ParseWidget(raw)
	if err != nil {
		c.log.Error("No configuration was supplied. Please supply a config object upon library initialization", "err", err)
		return err
	}
	return c.Mount(ctx, base, config.ForVisitor(base, supplied))
}

// Mount merges supplied over base, configures the scheduling client and
// starts the event loop. The calendar is built on the first Loaded event.
func (c *Controller) Mount(ctx context.Context, base config.Widget, supplied *config.Widget) error {
	if supplied == nil {
		c.log.Error("No configuration was supplied. Please supply a config object upon library initialization")
		return fmt.Errorf("%w: no configuration was supplied", internaltypes.ErrConfiguration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mounted || c.done != nil {
		return errors.New("widget already mounted")
	}

	c.cfg = config.Merge(base, supplied)
	c.session = session.New()
	c.store = availability.NewStore()

	c.deps.Client.Configure(booking.Credentials{
		App:      c.cfg.Timekit.App,
		Email:    c.cfg.Email,
		APIToken: c.cfg.APIToken,
	})
	c.deps.Surface.Attach(c.cfg)

	loopCtx, cancel := context.WithCancel(ctx)
	c.events = make(chan Event, eventBuffer)
	c.done = make(chan struct{})
	c.cancel = cancel
	c.mounted = true
	c.deps.Metrics.Mounted()

	go c.run(loopCtx, c.events, c.done)
	return nil
}

// Unmount stops the loop and discards the session. Safe to call more than once.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
	c.deps.Metrics.Unmounted()
}

// Dispatch delivers ev to the loop. It reports false when the widget is not
// mounted.
func (c *Controller) Dispatch(ev Event) bool {
	c.mu.Lock()
	events, done, mounted := c.events, c.done, c.mounted
	c.mu.Unlock()
	if !mounted {
		return false
	}
	select {
	case events <- ev:
		return true
	case <-done:
		return false
	}
}

func (c *Controller) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !c.Dispatch(snapshotRequest{reply: reply}) {
		return Snapshot{}
	}
	select {
	case s := <-reply:
		return s
	case <-c.doneChan():
		return Snapshot{}
	}
}

// Calendar forwards args to the mounted calendar's control surface. ok is
// false while no calendar exists.
func (c *Controller) Calendar(args ...any) (result any, ok bool) {
	reply := make(chan controlReply, 1)
	if !c.Dispatch(controlRequest{args: args, reply: reply}) {
		return nil, false
	}
	select {
	case r := <-reply:
		return r.result, r.ok
	case <-c.doneChan():
		return nil, false
	}
}

func (c *Controller) doneChan() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Controller) run(ctx context.Context, events <-chan Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			c.handle(ctx, ev)
		}
	}
}

// post runs call off the loop and delivers its result event, unless the
// widget has been torn down in the meantime.
func (c *Controller) post(ctx context.Context, call func(context.Context) Event) {
	events, done := c.events, c.done
	go func() {
		ev := call(ctx)
		select {
		case events <- ev:
		case <-done:
		}
	}()
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Loaded:
		c.onLoaded(ctx, e)
	case Resized:
		if c.calendarBuilt {
			calendar.Apply(c.deps.View, e.Width)
		}
	case SlotClicked:
		c.onSlotClicked(e.Slot)
	case FormSubmitted:
		c.onSubmit(ctx, e.Values)
	case CloseClicked:
		c.dismiss()
	case KeyPressed:
		if c.escListening && isDismissKey(e.Key) {
			c.dismiss()
		}
	case availabilityResult:
		c.onAvailability(e)
	case timezoneResult:
		c.onTimezone(e)
	case createEventResult:
		c.onCreateEvent(e)
	case snapshotRequest:
		e.reply <- c.snapshot()
	case controlRequest:
		e.reply <- c.control(e.args)
	}
}

func (c *Controller) onLoaded(ctx context.Context, e Loaded) {
	if c.loaded {
		return
	}
	c.loaded = true
	c.loc = timezone.Location(e.TimezoneOffsetMinutes)
	c.viewerOffset = timezone.ViewerOffsetHours(e.TimezoneOffsetMinutes)

	view := c.deps.View
	view.OnSlotClick(func(s booking.TimeSlot) { c.Dispatch(SlotClicked{Slot: s}) })
	view.OnResize(func(w int) { c.Dispatch(Resized{Width: w}) })
	if err := view.Construct(calendarOptions(calendar.Decide(e.Width), c.cfg.FullCalendar)); err != nil {
		c.log.Error("calendar construction failed", "err", err)
		return
	}
	c.calendarBuilt = true
	c.deps.Surface.Reveal()

	q := findTimeQuery(c.cfg)
	client := c.deps.Client
	c.post(ctx, func(ctx context.Context) Event {
		slots, err := client.FindTime(ctx, q)
		return availabilityResult{slots: slots, err: err}
	})

	if c.cfg.ShowTimezoneHelper() {
		c.deps.Surface.ShowTimezoneHelper(nil)
		tq := booking.TimezoneQuery{Email: c.cfg.Email, Extra: c.cfg.UserTimezone.Extra}
		if c.cfg.UserTimezone.Email != "" {
			tq.Email = c.cfg.UserTimezone.Email
		}
		c.post(ctx, func(ctx context.Context) Event {
			off, err := client.GetUserTimezone(ctx, tq)
			return timezoneResult{offsetHours: off, err: err}
		})
	}

	if c.cfg.Avatar != "" {
		c.deps.Surface.ShowAvatar(c.cfg.Avatar)
	}
}

func (c *Controller) onAvailability(r availabilityResult) {
	c.deps.Metrics.ObserveCall("find_time", r.err)
	if r.err != nil {
		c.log.Error("An error with FindTime occured", "err", r.err)
		return
	}
	cleared, dropped := c.store.Replace(r.slots)
	if dropped > 0 {
		c.log.Warn("dropped invalid slots from availability", "dropped", dropped)
	}
	c.deps.View.AddEventSource(c.store.Slots())
	if cleared {
		c.deps.View.MarkPopulated()
	}
}

func (c *Controller) onTimezone(r timezoneResult) {
	c.deps.Metrics.ObserveCall("user_timezone", r.err)
	if r.err != nil {
		c.log.Error("An error with GetUserTimezone occured", "err", r.err)
		return
	}
	d := timezone.Compute(c.viewerOffset, r.offsetHours)
	d.HostName = c.cfg.Name
	c.deps.Surface.ShowTimezoneHelper(&d)
}

func (c *Controller) onSlotClicked(slot booking.TimeSlot) {
	if !c.store.Offers(slot) {
		c.log.Warn("ignored slot that was not offered",
			"start", slot.Start.Format(time.RFC3339), "end", slot.End.Format(time.RFC3339))
		return
	}
	form, err := c.session.Select(slot, c.loc)
	if err != nil {
		if !errors.Is(err, internaltypes.ErrInvalidTransition) {
			c.log.Warn("ignored invalid slot", "err", err)
		}
		return
	}
	c.deps.Metrics.ObserveTransition(c.session.State().String())
	c.deps.Surface.ShowBookingPage(form)
	c.escListening = true
}

func (c *Controller) dismiss() {
	if !c.session.Dismiss() {
		return
	}
	c.deps.Metrics.ObserveTransition(c.session.State().String())
	c.deps.Surface.HideBookingPage()
	c.escListening = false
}

func (c *Controller) onSubmit(ctx context.Context, submitted booking.FormValues) {
	form := c.session.Form()
	values, err := c.session.Submit(submitted)
	if errors.Is(err, internaltypes.ErrGuardRejected) {
		c.deps.Metrics.ObserveGuardRejection()
		return
	}
	if err != nil {
		return
	}
	// The captured slot alone decides the booked interval.
	values["start"] = form.Start
	values["end"] = form.End
	c.deps.Metrics.ObserveTransition(c.session.State().String())
	c.deps.Surface.SetSubmitState(c.session.Button())

	host := booking.HostIdentity{Name: c.cfg.Name, Email: c.cfg.Email, Calendar: c.cfg.Calendar}
	req := session.BuildEventRequest(host, values, c.cfg.CreateEvent)
	client := c.deps.Client
	// An accepted booking request is not abandoned when the visitor goes away.
	c.post(context.WithoutCancel(ctx), func(ctx context.Context) Event {
		conf, err := client.CreateEvent(ctx, req)
		return createEventResult{conf: conf, err: err}
	})
}

func (c *Controller) onCreateEvent(r createEventResult) {
	c.deps.Metrics.ObserveCall("create_event", r.err)
	if r.err != nil {
		c.log.Error("An error with CreateEvent occured", "err", r.err, "attempt", c.session.Attempts())
		if c.session.Reject(r.err) == nil {
			c.deps.Metrics.ObserveTransition(c.session.State().String())
			c.deps.Surface.SetSubmitState(c.session.Button())
		}
		return
	}
	if c.session.Resolve(r.conf) == nil {
		c.deps.Metrics.ObserveTransition(c.session.State().String())
		c.deps.Surface.SetSubmitState(c.session.Button())
	}
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Mounted:  true,
		Loaded:   c.loaded,
		Calendar: c.calendarBuilt,
		State:    c.session.State(),
		Button:   c.session.Button(),
		Slots:    c.store.Len(),
		Empty:    c.store.IsEmpty(),
		Attempts: c.session.Attempts(),
	}
	if slot, ok := c.session.Slot(); ok {
		s.Slot = &slot
	}
	return s
}

func (c *Controller) control(args []any) controlReply {
	if !c.calendarBuilt {
		return controlReply{}
	}
	res, err := c.deps.View.Control(args...)
	if err != nil {
		c.log.Warn("calendar control call failed", "err", err)
	}
	return controlReply{result: res, ok: true}
}

func findTimeQuery(cfg config.Widget) booking.FindTimeQuery {
	q := booking.FindTimeQuery{
		Emails: []string{cfg.Email},
		Future: cfg.FindTime.Future,
		Length: cfg.FindTime.Length,
		Extra:  cfg.FindTime.Extra,
	}
	if cfg.FindTime.Emails != nil {
		q.Emails = append([]string(nil), cfg.FindTime.Emails...)
	}
	return q
}

// calendarOptions sizes the calendar per policy; display overrides win.
func calendarOptions(size calendar.Size, fc config.FullCalendar) calendar.Options {
	opts := calendar.Options{
		DefaultView: size.Mode,
		Height:      size.HeightPixels,
		Display:     make(map[string]any, len(fc.Extra)+5),
	}
	for k, v := range fc.Extra {
		opts.Display[k] = v
	}
	if fc.Header != nil {
		opts.Display["header"] = fc.Header
	}
	if fc.ScrollTime != "" {
		opts.Display["scrollTime"] = fc.ScrollTime
	}
	if fc.AllDaySlot != nil {
		opts.Display["allDaySlot"] = *fc.AllDaySlot
	}
	if fc.Timezone != "" {
		opts.Display["timezone"] = fc.Timezone
	}
	switch calendar.ViewMode(fc.DefaultView) {
	case calendar.DayView, calendar.WeekView:
		opts.DefaultView = calendar.ViewMode(fc.DefaultView)
	default:
		if fc.DefaultView != "" {
			opts.Display["defaultView"] = fc.DefaultView
		}
	}
	if fc.Height != nil {
		opts.Height = *fc.Height
	}
	return opts
}
