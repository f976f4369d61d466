package calendar

type ViewMode string

const (
	DayView  ViewMode = "day"
	WeekView ViewMode = "week"
)

// FullCalendarName maps the mode to the calendar library's view name.
func (m ViewMode) FullCalendarName() string {
	if m == DayView {
		return "basicDay"
	}
	return "agendaWeek"
}

const (
	narrowWidth = 480

	dayHeight  = 400
	weekHeight = 550
)

type Size struct {
	Mode         ViewMode
	HeightPixels int
}

// Decide maps a viewport width in pixels to a view mode and height.
func Decide(width int) Size {
	if width < narrowWidth {
		return Size{Mode: DayView, HeightPixels: dayHeight}
	}
	return Size{Mode: WeekView, HeightPixels: weekHeight}
}

// Apply re-evaluates the size for width and pushes it to a live view.
func Apply(v View, width int) Size {
	s := Decide(width)
	v.ChangeView(s.Mode)
	v.SetHeight(s.HeightPixels)
	return s
}
