package layout

import (
	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

// Placed is an annotated event copy together with its pixel rectangle.
type Placed struct {
	Event model.Event `json:"event"`
	Rect  model.Rect  `json:"rect"`
	Draft bool        `json:"draft,omitempty"`
	// Span is set for all-day events only.
	Span string `json:"span,omitempty"`
}

// Week is the output of one layout pass over a view window.
type Week struct {
	Window model.Window `json:"window"`
	Timed  []Placed     `json:"timed"`
	AllDay []Placed     `json:"allDay"`
}

// Arrange runs one render pass: events outside the window, all-day events
// that cover none of its days and someday events are dropped, timed events are clustered, and every remaining event
// is mapped onto the grid. Events whose ids are in drafts render as drafts.
// Input order is kept within Timed and AllDay.
func Arrange(events []model.Event, window model.Window, grid model.Grid, drafts map[string]bool) Week {
	var timed, allDay []model.Event
	for _, e := range events {
		if e.IsSomeday || !IsEventInView(e, window.Start, window.End) {
			continue
		}
		if !e.IsAllDay {
			timed = append(timed, e)
			continue
		}
		// End dates are exclusive, so an all-day event ending on the first
		// day of the view touches the window without covering a column.
		if _, from, to, ok := AllDaySpan(e, window.Start); !ok || from >= to {
			appLog.Debug("layout: all-day event covers no day of the view", "id", e.ID)
			continue
		}
		allDay = append(allDay, e.Clone())
	}

	week := Week{
		Window: window,
		Timed:  make([]Placed, 0, len(timed)),
		AllDay: make([]Placed, 0, len(allDay)),
	}

	for _, e := range AdjustOverlaps(timed) {
		draft := drafts[e.ID]
		week.Timed = append(week.Timed, Placed{
			Event: e,
			Rect:  EventRect(e, window.Start, window.End, grid, draft),
			Draft: draft,
		})
	}

	for _, e := range allDay {
		draft := drafts[e.ID]
		span, _, _, _ := AllDaySpan(e, window.Start)
		week.AllDay = append(week.AllDay, Placed{
			Event: e,
			Rect:  EventRect(e, window.Start, window.End, grid, draft),
			Draft: draft,
			Span:  span.String(),
		})
	}

	return week
}
