package layout

import (
	"slices"
	"time"

	"weekgrid/internal/model"
)

// NavigationSource records what caused the view window to move.
type NavigationSource string

const (
	// SourceManual is a navigation from the week arrows, keyboard or a date
	// picker.
	SourceManual NavigationSource = "manual"
	// SourceDragToEdge is the pagination triggered by dragging an event
	// against the left or right edge of the grid.
	SourceDragToEdge NavigationSource = "drag-to-edge"
)

// IsEventInView reports whether the event starts inside the window, ends
// inside it, or spans it entirely. Window endpoints are inclusive. Events
// with malformed timestamps are never in view.
func IsEventInView(e model.Event, startOfView, endOfView time.Time) bool {
	w := model.Window{Start: startOfView, End: endOfView}
	start, startOK := e.Start()
	end, endOK := e.End()

	if startOK && w.Contains(start) {
		return true
	}
	if endOK && w.Contains(end) {
		return true
	}
	return startOK && endOK && start.Before(startOfView) && end.After(endOfView)
}

// IsEventOutsideView is the exact negation of IsEventInView.
func IsEventOutsideView(e model.Event, startOfView, endOfView time.Time) bool {
	return !IsEventInView(e, startOfView, endOfView)
}

// ShouldAddToViewAfterDragToEdge decides whether an event has to be
// inserted into the rendered set after the window moved underneath a drag.
// It only fires for drag-to-edge pagination, for events that moved into the
// new window, and for ids that are not rendered yet.
func ShouldAddToViewAfterDragToEdge(
	e model.Event,
	startOfView, endOfView time.Time,
	source NavigationSource,
	renderedIDs []string,
) bool {
	if source != SourceDragToEdge {
		return false
	}
	if !IsEventInView(e, startOfView, endOfView) || IsEventOutsideView(e, startOfView, endOfView) {
		return false
	}
	return !slices.Contains(renderedIDs, e.ID)
}

// WeekOf returns the seven-day window containing t, beginning at midnight
// of weekStart in t's location and ending one nanosecond before the next
// week begins.
func WeekOf(t time.Time, weekStart time.Weekday) model.Window {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	back := (int(day.Weekday()) - int(weekStart) + DaysInWeek) % DaysInWeek
	start := day.AddDate(0, 0, -back)
	end := start.AddDate(0, 0, DaysInWeek).Add(-time.Nanosecond)
	return model.Window{Start: start, End: end}
}
