package booking

import (
	"fmt"
	"time"
)

// TimeSlot is a bookable interval offered by the host. Start must be before End.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s TimeSlot) Validate() error {
	if s.Start.IsZero() || s.End.IsZero() {
		return fmt.Errorf("slot start and end are required")
	}
	if !s.Start.Before(s.End) {
		return fmt.Errorf("slot start %s must be before end %s", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
	}
	return nil
}

// FormValues holds every submitted form field by name.
type FormValues map[string]string

func (v FormValues) Clone() FormValues {
	if v == nil {
		return nil
	}
	out := make(FormValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// HostIdentity is the calendar owner whose availability is offered.
type HostIdentity struct {
	Name     string
	Email    string
	Calendar string
	Avatar   string
}

type Credentials struct {
	App      string
	Email    string
	APIToken string
}

type FindTimeQuery struct {
	Emails []string       `json:"emails"`
	Future string         `json:"future,omitempty"`
	Length string         `json:"length,omitempty"`
	Extra  map[string]any `json:"-"`
}

type TimezoneQuery struct {
	Email string         `json:"email"`
	Extra map[string]any `json:"-"`
}

// EventRequest is the outbound create-event payload.
type EventRequest struct {
	Start        string         `json:"start"`
	End          string         `json:"end"`
	What         string         `json:"what"`
	Where        string         `json:"where,omitempty"`
	CalendarID   string         `json:"calendar_id"`
	Participants []string       `json:"participants"`
	Description  string         `json:"description"`
	Invite       *bool          `json:"invite,omitempty"`
	MyRSVP       string         `json:"my_rsvp,omitempty"`
	Extra        map[string]any `json:"-"`
}

type Confirmation struct {
	ID  string
	Raw map[string]any
}
