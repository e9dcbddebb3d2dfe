package layout

import (
	"testing"
	"time"

	"weekgrid/internal/model"
)

func testGrid() model.Grid {
	return model.Grid{
		DayWidths:       []float64{100, 100, 100, 100, 100, 100, 100},
		HourHeight:      60,
		AllDayRowHeight: 24,
		OffsetLeft:      50,
	}
}

func testWeek() model.Window {
	return WeekOf(time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC), time.Sunday)
}

func allDayEvent(id, start, end string) model.Event {
	return model.Event{
		ID:        id,
		StartDate: start,
		EndDate:   end,
		IsAllDay:  true,
		Position:  model.DefaultPosition(),
	}
}

func assertRect(t *testing.T, got, want model.Rect) {
	t.Helper()
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestEventRectTimed(t *testing.T) {
	w := testWeek()
	e := timedEvent("A", "A", "07:00", "08:00")

	got := EventRect(e, w.Start, w.End, testGrid(), false)
	assertRect(t, got, model.Rect{Top: 420, Left: 251, Width: 88, Height: 58})
}

func TestEventRectTimedOverlapping(t *testing.T) {
	w := testWeek()
	e := timedEvent("B", "B", "07:30", "08:00")
	e.Position = model.Position{IsOverlapping: true, WidthMultiplier: 0.5, HorizontalOrder: 2}

	got := EventRect(e, w.Start, w.End, testGrid(), false)
	assertRect(t, got, model.Rect{Top: 450, Left: 289, Width: 38, Height: 28})
}

func TestEventRectDraftUsesFullColumn(t *testing.T) {
	w := testWeek()
	e := timedEvent("B", "B", "07:30", "08:00")
	e.Position = model.Position{IsOverlapping: true, WidthMultiplier: 0.5, HorizontalOrder: 2}

	got := EventRect(e, w.Start, w.End, testGrid(), true)
	assertRect(t, got, model.Rect{Top: 450, Left: 251, Width: 100, Height: 28})
}

func TestEventRectRoundsStartToQuarterHour(t *testing.T) {
	w := testWeek()
	cases := map[string]float64{
		"07:07": 420,
		"07:08": 435,
		"07:53": 480,
	}
	for start, top := range cases {
		e := timedEvent("A", "A", start, "09:00")
		if got := EventRect(e, w.Start, w.End, testGrid(), false).Top; got != top {
			t.Errorf("start %s: expected top %v, got %v", start, top, got)
		}
	}
}

func TestEventRectUsesColumnOfStartDay(t *testing.T) {
	w := testWeek()
	e := model.Event{
		ID:        "sat",
		StartDate: "2024-03-23T10:00:00Z",
		EndDate:   "2024-03-23T11:00:00Z",
		Position:  model.DefaultPosition(),
	}
	grid := testGrid()
	grid.DayWidths[0] = 40

	got := EventRect(e, w.Start, w.End, grid, false)
	if got.Left != 50+40+5*100+1 {
		t.Fatalf("expected left 591, got %v", got.Left)
	}
}

func TestEventRectAllDaySpans(t *testing.T) {
	w := testWeek()
	cases := []struct {
		name  string
		event model.Event
		span  WeekSpan
		want  model.Rect
	}{
		{
			name:  "within week",
			event: allDayEvent("a", "2024-03-19", "2024-03-21"),
			span:  SpanWithinWeek,
			want:  model.Rect{Top: 24, Left: 250, Width: 200, Height: 22},
		},
		{
			name:  "starts this week",
			event: allDayEvent("b", "2024-03-22", "2024-03-26"),
			span:  SpanStartsThisWeek,
			want:  model.Rect{Top: 24, Left: 550, Width: 200, Height: 22},
		},
		{
			name:  "ends this week",
			event: allDayEvent("c", "2024-03-15", "2024-03-19"),
			span:  SpanEndsThisWeek,
			want:  model.Rect{Top: 24, Left: 50, Width: 200, Height: 22},
		},
		{
			name:  "whole week",
			event: allDayEvent("d", "2024-03-10", "2024-03-30"),
			span:  SpanWholeWeek,
			want:  model.Rect{Top: 24, Left: 50, Width: 700, Height: 22},
		},
		{
			name:  "last day only",
			event: allDayEvent("e", "2024-03-23", "2024-03-24"),
			span:  SpanWithinWeek,
			want:  model.Rect{Top: 24, Left: 650, Width: 100, Height: 22},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			span, _, _, ok := AllDaySpan(tc.event, w.Start)
			if !ok || span != tc.span {
				t.Fatalf("expected span %v, got %v (ok=%v)", tc.span, span, ok)
			}
			got := EventRect(tc.event, w.Start, w.End, testGrid(), false)
			if got.Width < 0 || got.Left < 0 {
				t.Fatalf("unexpected negative geometry %+v", got)
			}
			assertRect(t, got, tc.want)
		})
	}
}

func TestEventRectAllDayRow(t *testing.T) {
	w := testWeek()
	e := allDayEvent("a", "2024-03-19", "2024-03-20")
	e.Row = 2
	if got := EventRect(e, w.Start, w.End, testGrid(), false).Top; got != 48 {
		t.Fatalf("expected top 48, got %v", got)
	}
}

func TestEventRectAllDayWithOffsetTimestamps(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	w := WeekOf(time.Date(2024, 3, 19, 9, 0, 0, 0, loc), time.Sunday)
	e := allDayEvent("a", "2024-03-19T00:00:00-05:00", "2024-03-20T00:00:00-05:00")

	got := EventRect(e, w.Start, w.End, testGrid(), false)
	if got.Left != 250 || got.Width != 100 {
		t.Fatalf("expected tuesday column, got %+v", got)
	}
}

func TestEventRectMalformedIsZero(t *testing.T) {
	w := testWeek()
	e := timedEvent("A", "A", "07:00", "08:00")
	e.EndDate = "garbage"
	assertRect(t, EventRect(e, w.Start, w.End, testGrid(), false), model.Rect{})
}

func TestClassifyWeekSpanIsExhaustive(t *testing.T) {
	cases := []struct {
		before, after bool
		want          WeekSpan
	}{
		{false, false, SpanWithinWeek},
		{false, true, SpanStartsThisWeek},
		{true, false, SpanEndsThisWeek},
		{true, true, SpanWholeWeek},
	}
	seen := map[WeekSpan]bool{}
	for _, tc := range cases {
		got := ClassifyWeekSpan(tc.before, tc.after)
		if got != tc.want {
			t.Fatalf("before=%v after=%v: expected %v, got %v", tc.before, tc.after, tc.want, got)
		}
		if got.String() == "unknown" {
			t.Fatalf("span %d has no name", got)
		}
		seen[got] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected four distinct spans, got %d", len(seen))
	}
}

func TestEventRectClipsEventCarriedOverFromPreviousWeek(t *testing.T) {
	w := testWeek()
	e := spanEvent("late", "2024-03-16T23:00:00Z", "2024-03-17T01:00:00Z")

	got := EventRect(e, w.Start, w.End, testGrid(), false)
	assertRect(t, got, model.Rect{Top: 0, Left: 51, Width: 88, Height: 58})
}
