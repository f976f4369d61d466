package widget

import (
	"github.com/example/bookingwidget/internal/domain/booking"
)

// Event is a message delivered to the controller's loop. User-interface events
// are exported; results of scheduling calls are internal.
type Event interface{ event() }

// Loaded is the host page's load event. Calendar construction waits for it.
type Loaded struct {
	Width int
	// TimezoneOffsetMinutes is the viewer's offset in minutes west of UTC.
	TimezoneOffsetMinutes int
}

type Resized struct{ Width int }

type SlotClicked struct{ Slot booking.TimeSlot }

type FormSubmitted struct{ Values booking.FormValues }

type CloseClicked struct{}

type KeyPressed struct{ Key string }

type availabilityResult struct {
	slots []booking.TimeSlot
	err   error
}

type timezoneResult struct {
	offsetHours int
	err         error
}

type createEventResult struct {
	conf booking.Confirmation
	err  error
}

type snapshotRequest struct{ reply chan Snapshot }

type controlRequest struct {
	args  []any
	reply chan controlReply
}

type controlReply struct {
	result any
	ok     bool
}

func (Loaded) event()             {}
func (Resized) event()            {}
func (SlotClicked) event()        {}
func (FormSubmitted) event()      {}
func (CloseClicked) event()       {}
func (KeyPressed) event()         {}
func (availabilityResult) event() {}
func (timezoneResult) event()     {}
func (createEventResult) event()  {}
func (snapshotRequest) event()    {}
func (controlRequest) event()     {}

func isDismissKey(key string) bool {
	return key == "Escape" || key == "Esc" || key == "27"
}
