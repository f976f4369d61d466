// Package session holds the booking interaction state machine for one widget
// mount. It is not safe for concurrent use; the widget controller drives it
// from a single goroutine.
package session

import (
	"fmt"
	"time"

	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/internaltypes"
)

type State int

const (
	Idle State = iota
	SlotSelected
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SlotSelected:
		return "slot_selected"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ButtonState is the visual state of the submit control. The submit guard
// reads it, not State.
type ButtonState int

const (
	ButtonReady ButtonState = iota
	ButtonLoading
	ButtonSuccess
)

func (b ButtonState) String() string {
	switch b {
	case ButtonLoading:
		return "loading"
	case ButtonSuccess:
		return "success"
	}
	return "ready"
}

type Session struct {
	state    State
	button   ButtonState
	slot     *booking.TimeSlot
	form     booking.Form
	values   booking.FormValues
	err      error
	attempts int
}

func New() *Session { return &Session{} }

func (s *Session) State() State               { return s.state }
func (s *Session) Button() ButtonState        { return s.button }
func (s *Session) Form() booking.Form         { return s.form }
func (s *Session) Values() booking.FormValues { return s.values.Clone() }
func (s *Session) Err() error                 { return s.err }

// Attempts counts submissions that passed the guard for the current slot.
func (s *Session) Attempts() int { return s.attempts }

func (s *Session) Slot() (booking.TimeSlot, bool) {
	if s.slot == nil {
		return booking.TimeSlot{}, false
	}
	return *s.slot, true
}

// Select captures slot and returns the pre-filled booking form. Only valid
// from Idle.
func (s *Session) Select(slot booking.TimeSlot, loc *time.Location) (booking.Form, error) {
	if s.state != Idle {
		return booking.Form{}, fmt.Errorf("%w: select from %s", internaltypes.ErrInvalidTransition, s.state)
	}
	if err := slot.Validate(); err != nil {
		return booking.Form{}, err
	}
	captured := slot
	s.slot = &captured
	s.form = booking.NewForm(slot, loc)
	s.button = ButtonReady
	s.state = SlotSelected
	return s.form, nil
}

// Dismiss closes the booking page and resets to Idle. Dismissal while a
// submission is in flight is ignored so the result is never lost.
func (s *Session) Dismiss() bool {
	switch s.state {
	case SlotSelected, Failed, Succeeded:
		*s = Session{}
		return true
	}
	return false
}

// Submit applies the duplicate-submission guard and captures values. It
// returns the captured values for request construction.
func (s *Session) Submit(values booking.FormValues) (booking.FormValues, error) {
	if s.button == ButtonLoading || s.button == ButtonSuccess {
		return nil, internaltypes.ErrGuardRejected
	}
	if s.state != SlotSelected && s.state != Failed {
		return nil, fmt.Errorf("%w: submit from %s", internaltypes.ErrInvalidTransition, s.state)
	}
	s.values = values.Clone()
	if s.values == nil {
		s.values = booking.FormValues{}
	}
	s.err = nil
	s.button = ButtonLoading
	s.state = Submitting
	s.attempts++
	return s.values.Clone(), nil
}

// Resolve records a confirmed booking. The form stays locked afterwards.
func (s *Session) Resolve(booking.Confirmation) error {
	if s.state != Submitting {
		return fmt.Errorf("%w: resolve from %s", internaltypes.ErrInvalidTransition, s.state)
	}
	s.button = ButtonSuccess
	s.state = Succeeded
	return nil
}

// Reject records a failed create-event call and re-opens the form for retry.
func (s *Session) Reject(cause error) error {
	if s.state != Submitting {
		return fmt.Errorf("%w: reject from %s", internaltypes.ErrInvalidTransition, s.state)
	}
	s.err = cause
	s.button = ButtonReady
	s.state = Failed
	return nil
}
