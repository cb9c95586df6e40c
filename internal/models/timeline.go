package models

import "fmt"

// Timeline selects which backend period is queried for readings.
type Timeline string

const (
	TimelineDay   Timeline = "day"
	TimelineWeek  Timeline = "week"
	TimelineMonth Timeline = "month"
)

// ParseTimeline accepts the enum value or its period form ("1d", "1w", "1m").
func ParseTimeline(s string) (Timeline, error) {
	switch s {
	case "day", "1d":
		return TimelineDay, nil
	case "week", "1w":
		return TimelineWeek, nil
	case "month", "1m":
		return TimelineMonth, nil
	}
	return "", fmt.Errorf("invalid timeline %q: must be day, week or month", s)
}

// Period is the value sent as the readings `period` query parameter.
func (t Timeline) Period() string {
	switch t {
	case TimelineWeek:
		return "1w"
	case TimelineMonth:
		return "1m"
	default:
		return "1d"
	}
}

// TickLayout is the time layout used for chart time-axis ticks.
func (t Timeline) TickLayout() string {
	switch t {
	case TimelineWeek:
		return "Jan 02 15:04"
	case TimelineMonth:
		return "Jan 02"
	default:
		return "15:04"
	}
}

// View is the dashboard page an operator is looking at.
type View string

const (
	ViewMonitoring View = "monitoring"
	ViewFeeding    View = "feeding"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewMonitoring, ViewFeeding:
		return View(s), nil
	}
	return "", fmt.Errorf("invalid view %q: must be monitoring or feeding", s)
}
