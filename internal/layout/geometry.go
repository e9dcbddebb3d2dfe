package layout

import (
	"math"
	"time"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

// Grid constants, in pixels.
const (
	// DaysInWeek is the number of day columns in the week grid.
	DaysInWeek = 7
	// EventWidthBuffer is taken off every non-draft timed event so that
	// neighbouring columns do not touch.
	EventWidthBuffer = 12
	// EventBottomPadding separates back-to-back events vertically.
	EventBottomPadding = 2
	// TimedMarginLeft nudges timed events off the column's left border.
	TimedMarginLeft = 1
)

// WeekSpan classifies an all-day event against the visible week.
type WeekSpan int

const (
	// SpanWithinWeek starts and ends inside the week.
	SpanWithinWeek WeekSpan = iota + 1
	// SpanStartsThisWeek starts inside the week and ends after it.
	SpanStartsThisWeek
	// SpanEndsThisWeek started in an earlier week and ends inside this one.
	SpanEndsThisWeek
	// SpanWholeWeek starts before the week and ends after it.
	SpanWholeWeek
)

func (s WeekSpan) String() string {
	switch s {
	case SpanWithinWeek:
		return "within-week"
	case SpanStartsThisWeek:
		return "starts-this-week"
	case SpanEndsThisWeek:
		return "ends-this-week"
	case SpanWholeWeek:
		return "whole-week"
	}
	return "unknown"
}

// ClassifyWeekSpan maps the two boundary tests onto the four spans. Every
// combination of inputs has exactly one span.
func ClassifyWeekSpan(startsBefore, endsAfter bool) WeekSpan {
	if startsBefore {
		if endsAfter {
			return SpanWholeWeek
		}
		return SpanEndsThisWeek
	}
	if endsAfter {
		return SpanStartsThisWeek
	}
	return SpanWithinWeek
}

func (s WeekSpan) startsBefore() bool {
	return s == SpanEndsThisWeek || s == SpanWholeWeek
}

func (s WeekSpan) endsAfter() bool {
	return s == SpanStartsThisWeek || s == SpanWholeWeek
}

// columns returns the half-open column range [from, to) the span covers.
// startCol and endCol are the event's own start column and exclusive end
// column relative to the first day of the week.
func (s WeekSpan) columns(startCol, endCol int) (from, to int) {
	from, to = startCol, endCol
	if s.startsBefore() {
		from = 0
	}
	if s.endsAfter() {
		to = DaysInWeek
	}
	return clampCol(from), clampCol(to)
}

// AllDaySpan returns the week span and the column range of an all-day event.
// ok is false when the event's dates are malformed.
func AllDaySpan(e model.Event, startOfView time.Time) (span WeekSpan, from, to int, ok bool) {
	start, startOK := e.Start()
	end, endOK := e.End()
	if !startOK || !endOK {
		return 0, 0, 0, false
	}
	startCol := dayIndex(startOfView, start, true)
	// All-day end dates are exclusive; a zero-length event still fills its day.
	endCol := max(dayIndex(startOfView, end, true), startCol+1)

	span = ClassifyWeekSpan(startCol < 0, endCol > DaysInWeek)
	from, to = span.columns(startCol, endCol)
	return span, from, to, true
}

// EventRect maps an event onto the week grid. Timed events are placed by
// their start slot and duration inside their day column; all-day events are
// placed in the all-day strip across the columns their week span covers.
// Drafts always take the full column width. Malformed events get a zero
// rectangle.
func EventRect(e model.Event, startOfView, endOfView time.Time, grid model.Grid, isDraft bool) model.Rect {
	if e.IsAllDay {
		return allDayRect(e, startOfView, grid, isDraft)
	}
	return timedRect(e, startOfView, grid, isDraft)
}

func timedRect(e model.Event, startOfView time.Time, grid model.Grid, isDraft bool) model.Rect {
	start, startOK := e.Start()
	end, endOK := e.End()
	if !startOK || !endOK {
		appLog.Debug("layout: cannot place event with malformed timestamps", "id", e.ID)
		return model.Rect{}
	}
	// Carried over from the previous week: draw only the part inside the view.
	if start.Before(startOfView) {
		start = startOfView
	}

	col := clampCol(dayIndex(startOfView, start, false))
	if col == DaysInWeek {
		col = DaysInWeek - 1
	}
	colWidth := columnWidth(grid, col)

	width := colWidth
	if !isDraft {
		width = colWidth*multiplierOf(e.Position) - EventWidthBuffer
	}

	// Quarter-hour rows are a quarter of an hour tall.
	top := grid.HourHeight * float64(slotIndex(start.In(startOfView.Location()))) / SlotsPerHour
	height := grid.HourHeight*end.Sub(start).Hours() - EventBottomPadding

	return model.Rect{
		Top:    top,
		Left:   leftOf(e, grid, col, width, isDraft),
		Width:  width,
		Height: height,
	}
}

func allDayRect(e model.Event, startOfView time.Time, grid model.Grid, isDraft bool) model.Rect {
	_, from, to, ok := AllDaySpan(e, startOfView)
	if !ok {
		appLog.Debug("layout: cannot place all-day event with malformed dates", "id", e.ID)
		return model.Rect{}
	}

	var width float64
	for col := from; col < to; col++ {
		width += columnWidth(grid, col)
	}

	row := e.Row
	if row <= 0 {
		row = 1
	}

	return model.Rect{
		Top:    grid.AllDayRowHeight * float64(row),
		Left:   leftOf(e, grid, from, width, isDraft),
		Width:  width,
		Height: grid.AllDayRowHeight - EventBottomPadding,
	}
}

// leftOf is the absolute left edge: the grid offset, every column before
// col, the slot within an overlap cluster, and the timed margin.
func leftOf(e model.Event, grid model.Grid, col int, width float64, isDraft bool) float64 {
	left := grid.OffsetLeft
	for i := 0; i < col; i++ {
		left += columnWidth(grid, i)
	}
	if e.Position.IsOverlapping && !isDraft && e.Position.HorizontalOrder > 1 {
		left += width * float64(e.Position.HorizontalOrder-1)
	}
	if !e.IsAllDay {
		left += TimedMarginLeft
	}
	return left
}

func multiplierOf(p model.Position) float64 {
	if p.WidthMultiplier <= 0 || p.WidthMultiplier > 1 {
		return 1
	}
	return p.WidthMultiplier
}

func columnWidth(grid model.Grid, col int) float64 {
	if col < 0 || col >= len(grid.DayWidths) {
		return 0
	}
	return grid.DayWidths[col]
}

func clampCol(col int) int {
	return min(max(col, 0), DaysInWeek)
}

// dayIndex counts calendar days from the first day of the view to t's day.
// Dated values (all-day events) keep their own calendar date; timestamps are
// converted to the view's location first.
func dayIndex(startOfView, t time.Time, dated bool) int {
	loc := startOfView.Location()
	if !dated {
		t = t.In(loc)
	}
	first := time.Date(startOfView.Year(), startOfView.Month(), startOfView.Day(), 0, 0, 0, 0, loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return int(math.Round(day.Sub(first).Hours() / 24))
}
