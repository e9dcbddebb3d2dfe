package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ErrBadRange is returned when the expansion window ends before it starts.
var ErrBadRange = errors.New("expand: range end is before range start")

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the zone timed occurrences are rendered in.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// Window bounds the occurrences, endpoints included.
	Window model.Window

	// MaxOccurrencesPerEvent caps runaway rules. Zero means the default.
	MaxOccurrencesPerEvent int
}

// ExpandResult is the event list handed to the layout core.
type ExpandResult struct {
	Events []model.Event
	// TruncatedUIDs lists recurring events that hit MaxOccurrencesPerEvent.
	TruncatedUIDs []string
}

// Expand turns parsed VEVENTs into concrete events inside cfg.Window.
// Recurring events are expanded with their EXDATEs removed and their
// RECURRENCE-ID overrides applied; every produced event passes
// model.Event.Validate.
func Expand(parsed []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.Window.End.Before(cfg.Window.Start) {
		return result, ErrBadRange
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Keep feed order stable: bases in first-seen order, overrides by UID.
	var bases []ParsedEvent
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range parsed {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	result.Events = make([]model.Event, 0, len(bases))
	for _, ev := range bases {
		var occ []model.Event
		if ev.RawRRule == "" {
			occ = expandSingle(ev, overrides[ev.UID], cfg)
		} else {
			var truncated bool
			occ, truncated = expandRecurring(ev, overrides[ev.UID], cfg)
			if truncated {
				result.TruncatedUIDs = append(result.TruncatedUIDs, ev.UID)
				appLog.Warn("expand: truncated occurrences", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
			}
		}
		for _, e := range occ {
			if err := e.Validate(); err != nil {
				appLog.Error("expand: dropping occurrence", err, "uid", ev.UID)
				continue
			}
			result.Events = append(result.Events, e)
		}
	}

	return result, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Event {
	if o, ok := findOverride(overrides, ev.Start); ok {
		ev = o
	}
	if !intersects(ev.Start, ev.End, ev.AllDay, cfg.Window) {
		return nil
	}
	return []model.Event{toEvent(ev, ev.Start, ev.End, false, cfg.DisplayLocation)}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Occurrences that started before the window may still run into it.
	dur := ev.End.Sub(ev.Start)
	from := cfg.Window.Start.Add(-dur).In(ev.Start.Location())
	to := cfg.Window.End.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	truncated := len(starts) > cfg.MaxOccurrencesPerEvent
	if truncated {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
	}

	out := make([]model.Event, 0, len(starts))
	for _, s := range starts {
		inst, start, end := ev, s, s.Add(dur)
		if o, ok := findOverride(overrides, s); ok {
			inst, start, end = o, o.Start, o.End
		}
		if !intersects(start, end, inst.AllDay, cfg.Window) {
			continue
		}
		out = append(out, toEvent(inst, start, end, true, cfg.DisplayLocation))
	}
	return out, truncated
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

// toEvent builds the layout-facing event. Recurring instances get an id
// made of UID and the instance start so ids stay unique per window. All-day
// dates keep their calendar day in the display zone.
func toEvent(ev ParsedEvent, start, end time.Time, instance bool, loc *time.Location) model.Event {
	if ev.AllDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	} else {
		start = start.In(loc)
		end = end.In(loc)
	}

	id := ev.UID
	if instance {
		id = fmt.Sprintf("%s@%s", ev.UID, start.UTC().Format("20060102T150405Z"))
	}

	e := model.Event{
		ID:        id,
		Title:     ev.Summary,
		StartDate: model.FormatTimestamp(start),
		EndDate:   model.FormatTimestamp(end),
		IsAllDay:  ev.AllDay,
		Position:  model.DefaultPosition(),
		SourceID:  ev.Source.ID,
	}
	if ev.RawRRule != "" {
		e.Recurrence = &model.Recurrence{Rule: []string{"RRULE:" + ev.RawRRule}, EventID: ev.UID}
	}
	return e
}

// intersects uses the same inclusive test as the view filter. All-day
// events are compared by calendar date in the window's zone, and their end
// date is exclusive: an event ending on the window's first day is outside.
func intersects(start, end time.Time, allDay bool, w model.Window) bool {
	if allDay {
		loc := w.Start.Location()
		start = model.DateIn(start, loc)
		end = model.DateIn(end, loc)
		return end.After(w.Start) && !start.After(w.End)
	}
	return !end.Before(w.Start) && !start.After(w.End)
}
