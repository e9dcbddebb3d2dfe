package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMalformedTimestamp is returned by Validate when a start or end date
	// is not an ISO-8601 timestamp.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrEndBeforeStart is returned by Validate when EndDate < StartDate.
	ErrEndBeforeStart = errors.New("end date is before start date")
	// ErrMissingID is returned by Validate for events without an id.
	ErrMissingID = errors.New("missing event id")
	// ErrDateOnlyTimestamp is returned by Validate when a timed event carries
	// a bare date instead of a timestamp with an offset.
	ErrDateOnlyTimestamp = errors.New("timed event needs a timestamp with an offset")
)

// DateLayout is accepted for all-day and someday events that carry a bare
// calendar date instead of a full timestamp.
const DateLayout = "2006-01-02"

// DragOffset is the pointer offset recorded while an event is being dragged.
type DragOffset struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Position carries the layout metadata the overlap engine assigns to a
// timed event. HorizontalOrder is 1-based and only meaningful when
// IsOverlapping is true.
type Position struct {
	IsOverlapping   bool       `json:"isOverlapping" yaml:"is_overlapping"`
	WidthMultiplier float64    `json:"widthMultiplier" yaml:"width_multiplier"`
	HorizontalOrder int        `json:"horizontalOrder" yaml:"horizontal_order"`
	DragOffset      DragOffset `json:"dragOffset" yaml:"drag_offset"`
	InitialX        *float64   `json:"initialX" yaml:"initial_x"`
	InitialY        *float64   `json:"initialY" yaml:"initial_y"`
}

// DefaultPosition is the position a freshly created event starts with.
func DefaultPosition() Position {
	return Position{
		WidthMultiplier: 1,
		HorizontalOrder: 1,
	}
}

// Clone returns a copy that shares no pointers with p.
func (p Position) Clone() Position {
	out := p
	if p.InitialX != nil {
		x := *p.InitialX
		out.InitialX = &x
	}
	if p.InitialY != nil {
		y := *p.InitialY
		out.InitialY = &y
	}
	return out
}

// Recurrence holds the RRULE lines of a recurring event, e.g.
// "RRULE:FREQ=WEEKLY;COUNT=4".
type Recurrence struct {
	Rule    []string `json:"rule,omitempty" yaml:"rule,omitempty"`
	EventID string   `json:"eventId,omitempty" yaml:"event_id,omitempty"`
}

// Event is a calendar event as handed to the layout core by the event store.
// StartDate and EndDate are ISO-8601 strings with an explicit offset; the
// layout code parses them on demand and treats unparsable values as
// non-overlapping and out of view.
type Event struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	StartDate string `json:"startDate" yaml:"start_date"`
	EndDate   string `json:"endDate" yaml:"end_date"`
	IsAllDay  bool   `json:"isAllDay" yaml:"is_all_day"`

	// Row is the all-day row the event occupies; zero means the first row.
	Row int `json:"row,omitempty" yaml:"row,omitempty"`

	Position Position `json:"position" yaml:"position"`

	// Someday events are untimed backlog entries ordered by Order.
	IsSomeday  bool        `json:"isSomeday,omitempty" yaml:"is_someday,omitempty"`
	Order      int         `json:"order,omitempty" yaml:"order,omitempty"`
	Recurrence *Recurrence `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`

	// SourceID names the feed the event was loaded from, if any.
	SourceID string `json:"sourceId,omitempty" yaml:"source_id,omitempty"`
}

// Clone returns a deep copy of e.
func (e Event) Clone() Event {
	out := e
	out.Position = e.Position.Clone()
	if e.Recurrence != nil {
		r := *e.Recurrence
		r.Rule = append([]string(nil), e.Recurrence.Rule...)
		out.Recurrence = &r
	}
	return out
}

// Start parses StartDate. ok is false for malformed values.
func (e Event) Start() (time.Time, bool) {
	return ParseTimestamp(e.StartDate)
}

// End parses EndDate. ok is false for malformed values.
func (e Event) End() (time.Time, bool) {
	return ParseTimestamp(e.EndDate)
}

// RecurrenceRules returns the event's RRULE lines, or nil.
func (e Event) RecurrenceRules() []string {
	if e.Recurrence == nil {
		return nil
	}
	return e.Recurrence.Rule
}

// Validate rejects events the layout core cannot place reliably. It is meant
// for the store boundary (feed loaders, HTTP input), not for the layout pass.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrMissingID
	}
	start, ok := e.Start()
	if !ok {
		return fmt.Errorf("event %s: startDate %q: %w", e.ID, e.StartDate, ErrMalformedTimestamp)
	}
	end, ok := e.End()
	if !ok {
		return fmt.Errorf("event %s: endDate %q: %w", e.ID, e.EndDate, ErrMalformedTimestamp)
	}
	if !e.IsAllDay && !e.IsSomeday {
		if IsDateOnly(e.StartDate) {
			return fmt.Errorf("event %s: startDate %q: %w", e.ID, e.StartDate, ErrDateOnlyTimestamp)
		}
		if IsDateOnly(e.EndDate) {
			return fmt.Errorf("event %s: endDate %q: %w", e.ID, e.EndDate, ErrDateOnlyTimestamp)
		}
	}
	if end.Before(start) {
		return fmt.Errorf("event %s: %w", e.ID, ErrEndBeforeStart)
	}
	return nil
}

// IsDateOnly reports whether s is a bare YYYY-MM-DD calendar date.
func IsDateOnly(s string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(s))
	return err == nil
}

// DateIn reinterprets t's calendar date and wall clock in loc. It is how
// dated values (bare dates, all-day events) are compared with windows built
// in a display zone.
func DateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// ParseTimestamp accepts RFC 3339 timestamps (with or without fractional
// seconds) and bare YYYY-MM-DD dates, which are read as UTC midnight.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatTimestamp renders t the way events carry their dates.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// Window is the [Start, End] instant range currently rendered. Both
// endpoints are inclusive.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the window, endpoints included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Grid holds the measured geometry of the week grid in pixels.
type Grid struct {
	// DayWidths are the pixel widths of the seven day columns, in view order.
	DayWidths []float64 `json:"dayWidths" yaml:"day_widths"`
	// HourHeight is the height of one hour on the timed grid.
	HourHeight float64 `json:"hourHeight" yaml:"hour_height"`
	// AllDayRowHeight is the height of one row in the all-day strip.
	AllDayRowHeight float64 `json:"allDayRowHeight" yaml:"all_day_row_height"`
	// OffsetLeft is added to every left coordinate to make it absolute.
	OffsetLeft float64 `json:"offsetLeft" yaml:"offset_left"`
}

// Rect is a pixel rectangle produced by the geometry mapper.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
