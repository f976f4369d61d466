package timezone

import (
	"fmt"
	"time"
)

// Display is the viewer-versus-host offset shown in the timezone helper.
type Display struct {
	DifferenceHours    int
	AbsoluteDifference int
	ViewerIsAhead      bool
	HostName           string
}

// Describe renders the helper sentence shown under the calendar.
func (d Display) Describe() string {
	if d.AbsoluteDifference == 0 {
		return "You are in the same timezone as " + d.HostName
	}
	rel := "behind"
	if d.ViewerIsAhead {
		rel = "ahead of"
	}
	return fmt.Sprintf("Your timezone is %d hours %s %s", d.AbsoluteDifference, rel, d.HostName)
}

// Compute returns the viewer's offset relative to the host. Offsets are signed
// hours east of UTC.
func Compute(viewerOffsetHours, hostOffsetHours int) Display {
	diff := viewerOffsetHours - hostOffsetHours
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	return Display{
		DifferenceHours:    diff,
		AbsoluteDifference: abs,
		ViewerIsAhead:      diff >= 0,
	}
}

// ViewerOffsetHours converts a browser timezone offset (minutes west of UTC,
// as reported by Date.getTimezoneOffset) to hours east of UTC.
func ViewerOffsetHours(minutesWest int) int {
	return -minutesWest / 60
}

// Location returns a fixed zone for the viewer offset.
func Location(minutesWest int) *time.Location {
	if minutesWest == 0 {
		return time.UTC
	}
	east := -minutesWest * 60
	sign := "+"
	if east < 0 {
		sign = "-"
	}
	h := minutesWest / 60
	if h < 0 {
		h = -h
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%d", sign, h), east)
}
