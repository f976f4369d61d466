package booking

import "time"

const (
	dateLayout  = "2. January 2006"
	clockLayout = "3:04pm"

	submitText  = "Book it"
	loadingText = "Wait.."
)

// Form is the booking page rendered for a chosen slot.
type Form struct {
	ChosenDate  string
	ChosenTime  string
	Start       string
	End         string
	SubmitText  string
	LoadingText string
}

// NewForm pre-fills the booking page for slot, formatted in the viewer's location.
// Start and End are RFC3339 and parse back to the slot bounds.
func NewForm(slot TimeSlot, loc *time.Location) Form {
	if loc == nil {
		loc = time.UTC
	}
	start := slot.Start.In(loc)
	end := slot.End.In(loc)
	return Form{
		ChosenDate:  start.Format(dateLayout),
		ChosenTime:  start.Format(clockLayout) + " to " + end.Format(clockLayout),
		Start:       start.Format(time.RFC3339),
		End:         end.Format(time.RFC3339),
		SubmitText:  submitText,
		LoadingText: loadingText,
	}
}
