package web

import (
	"encoding/json"

	"github.com/example/bookingwidget/internal/domain/booking"
)

// Inbound message types sent by the browser.
const (
	msgInit          = "init"
	msgLoad          = "load"
	msgResize        = "resize"
	msgSlotClick     = "slotClick"
	msgSubmit        = "submit"
	msgClose         = "close"
	msgKeyUp         = "keyup"
	msgCalendar      = "calendar"
	msgControlResult = "controlResult"
)

// Outbound message types sent to the browser.
const (
	msgAttach         = "attach"
	msgReveal         = "reveal"
	msgConstruct      = "construct"
	msgChangeView     = "changeView"
	msgSetHeight      = "setHeight"
	msgEventSource    = "addEventSource"
	msgMarkPopulated  = "markPopulated"
	msgBookingPage    = "bookingPage"
	msgHideBooking    = "hideBookingPage"
	msgSubmitState    = "submitState"
	msgTimezoneHelper = "timezoneHelper"
	msgAvatar         = "avatar"
	msgControl        = "control"
	msgCalendarResult = "calendarResult"
)

type inbound struct {
	Type     string             `json:"type"`
	Config   json.RawMessage    `json:"config,omitempty"`
	Width    int                `json:"width,omitempty"`
	TzOffset int                `json:"tzOffset,omitempty"`
	Slot     *booking.TimeSlot  `json:"slot,omitempty"`
	Values   booking.FormValues `json:"values,omitempty"`
	Key      string             `json:"key,omitempty"`
	ID       int64              `json:"id,omitempty"`
	Args     []any              `json:"args,omitempty"`
	Result   any                `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type outbound struct {
	Type    string         `json:"type"`
	Target  string         `json:"target,omitempty"`
	HTML    string         `json:"html,omitempty"`
	Styles  []string       `json:"styles,omitempty"`
	Options map[string]any `json:"options,omitempty"`
	View    string         `json:"view,omitempty"`
	Height  int            `json:"height,omitempty"`
	Events  []eventSource  `json:"events,omitempty"`
	State   string         `json:"state,omitempty"`
	Label   string         `json:"label,omitempty"`
	ID      int64          `json:"id,omitempty"`
	Args    []any          `json:"args,omitempty"`
	Result  any            `json:"result,omitempty"`
	OK      bool           `json:"ok,omitempty"`
}

// eventSource is one calendar event in the calendar library's shape.
type eventSource struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
