package calendar

import "github.com/example/bookingwidget/internal/domain/booking"

// Options configures calendar construction. Display carries caller display
// overrides that are passed through to the calendar library untouched.
type Options struct {
	DefaultView ViewMode
	Height      int
	Display     map[string]any
}

// View is the calendar component. Handlers registered with OnSlotClick and
// OnResize are invoked by the view when the visitor clicks an event or the
// viewport changes width.
type View interface {
	Construct(opts Options) error
	ChangeView(mode ViewMode)
	SetHeight(px int)
	AddEventSource(slots []booking.TimeSlot)
	// MarkPopulated clears the empty-calendar visual state.
	MarkPopulated()
	OnSlotClick(fn func(booking.TimeSlot))
	OnResize(fn func(width int))
	Control(args ...any) (any, error)
}
