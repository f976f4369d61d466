package session

import (
	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/infrastructure/config"
)

// BuildEventRequest derives the create-event call from the submitted form.
// Fields set in overrides take precedence.
func BuildEventRequest(host booking.HostIdentity, values booking.FormValues, overrides config.CreateEvent) booking.EventRequest {
	req := booking.EventRequest{
		Start:        values["start"],
		End:          values["end"],
		What:         host.Name + " x " + values["name"],
		CalendarID:   host.Calendar,
		Participants: []string{host.Email, values["email"]},
		Description:  values["comment"],
	}

	if overrides.What != "" {
		req.What = overrides.What
	}
	if overrides.Where != "" {
		req.Where = overrides.Where
	}
	if overrides.CalendarID != "" {
		req.CalendarID = overrides.CalendarID
	}
	if overrides.Participants != nil {
		req.Participants = append([]string(nil), overrides.Participants...)
	}
	if overrides.Description != "" {
		req.Description = overrides.Description
	}
	if overrides.Invite != nil {
		v := *overrides.Invite
		req.Invite = &v
	}
	if overrides.MyRSVP != "" {
		req.MyRSVP = overrides.MyRSVP
	}
	if len(overrides.Extra) > 0 {
		req.Extra = make(map[string]any, len(overrides.Extra))
		for k, v := range overrides.Extra {
			req.Extra[k] = v
		}
	}
	return req
}
