// Package someday sorts untimed backlog events into the "this week" and
// "this month" columns shown beside the grid.
package someday

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

// ColumnID names a someday display column.
type ColumnID string

const (
	ColumnWeek  ColumnID = "week"
	ColumnMonth ColumnID = "month"
)

// ColumnOrder is the fixed left-to-right order of the someday columns.
var ColumnOrder = []ColumnID{ColumnWeek, ColumnMonth}

// Column is one bucket of event ids in display order.
type Column struct {
	ID       ColumnID `json:"id"`
	EventIDs []string `json:"eventIds"`
}

// Categorized is the output of one categorization pass.
type Categorized struct {
	Columns     map[ColumnID]Column    `json:"columns"`
	ColumnOrder []ColumnID             `json:"columnOrder"`
	Events      map[string]model.Event `json:"events"`
}

// Categorize buckets someday events against the visible week. Events are
// visited by ascending Order; equal orders fall back to id so that the
// result does not depend on map iteration.
//
//   - Week: starts and ends inside the week, and does not repeat monthly.
//   - Skipped: repeats weekly but is not due this week.
//   - Month: starts inside the calendar month of the week's first day.
//
// Anything else is not shown this pass. The returned Events map is the
// input map itself.
func Categorize(events map[string]model.Event, week model.Window) Categorized {
	sorted := make([]model.Event, 0, len(events))
	for _, e := range events {
		sorted = append(sorted, e)
	}
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	loc := week.Start.Location()
	month := MonthOf(week.Start)
	weekIDs := make([]string, 0)
	monthIDs := make([]string, 0)

	for _, e := range sorted {
		start, startOK := e.Start()
		end, endOK := e.End()
		if !startOK || !endOK {
			appLog.Debug("someday: skipping event with malformed dates", "id", e.ID)
			continue
		}
		start = inWeekZone(e, e.StartDate, start, loc)
		end = inWeekZone(e, e.EndDate, end, loc)
		freqs := recurrenceFrequencies(e)

		switch {
		case week.Contains(start) && week.Contains(end) && !freqs[rrule.MONTHLY]:
			weekIDs = append(weekIDs, e.ID)
		case freqs[rrule.WEEKLY]:
			// Future weekly repeat; it will show up in the week it is due.
		case month.Contains(start):
			monthIDs = append(monthIDs, e.ID)
		}
	}

	return Categorized{
		Columns: map[ColumnID]Column{
			ColumnWeek:  {ID: ColumnWeek, EventIDs: weekIDs},
			ColumnMonth: {ID: ColumnMonth, EventIDs: monthIDs},
		},
		ColumnOrder: slices.Clone(ColumnOrder),
		Events:      events,
	}
}

// inWeekZone places a dated value (a bare date or an all-day event) on the
// same calendar day in the week's zone. Timestamps with an offset are
// instants and stay as they are.
func inWeekZone(e model.Event, raw string, t time.Time, loc *time.Location) time.Time {
	if e.IsAllDay || model.IsDateOnly(raw) {
		return model.DateIn(t, loc)
	}
	return t
}

// MonthOf returns the calendar month containing t, from the first day at
// midnight to the last nanosecond of the last day.
func MonthOf(t time.Time) model.Window {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return model.Window{
		Start: first,
		End:   first.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// recurrenceFrequencies parses the event's RRULE lines and reports which
// frequencies they use. Unparsable rules are ignored.
func recurrenceFrequencies(e model.Event) map[rrule.Frequency]bool {
	rules := e.RecurrenceRules()
	if len(rules) == 0 {
		return nil
	}
	freqs := make(map[rrule.Frequency]bool, len(rules))
	for _, line := range rules {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "RRULE:") && strings.Contains(line, ":") {
			// EXDATE, RDATE and friends carry no frequency.
			continue
		}
		line = line[strings.Index(line, ":")+1:]
		opt, err := rrule.StrToROption(line)
		if err != nil {
			appLog.Debug("someday: ignoring unparsable recurrence rule", "id", e.ID, "rule", line, "err", err)
			continue
		}
		freqs[opt.Freq] = true
	}
	return freqs
}
