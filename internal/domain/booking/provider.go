package booking

import "context"

// SchedulingClient is the external scheduling service. Every call may fail with a
// transport or validation error.
type SchedulingClient interface {
	Configure(creds Credentials)
	FindTime(ctx context.Context, q FindTimeQuery) ([]TimeSlot, error)
	GetUserTimezone(ctx context.Context, q TimezoneQuery) (offsetHours int, err error)
	CreateEvent(ctx context.Context, req EventRequest) (Confirmation, error)
}
