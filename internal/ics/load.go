package ics

import (
	"context"
	"errors"
	"time"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

// Loader is the event store the layout core reads from: it turns the
// configured feeds into a validated event list for one window.
type Loader struct {
	Fetcher  *Fetcher
	Sources  []Source
	Location *time.Location
}

// Load fetches, parses and expands every source for window. Per-source
// failures are logged and joined into the returned error; the events that
// could be loaded are still returned.
func (l *Loader) Load(ctx context.Context, window model.Window) (ExpandResult, error) {
	if len(l.Sources) == 0 {
		return ExpandResult{Events: []model.Event{}}, nil
	}

	fetched, fetchErrs := l.Fetcher.FetchAll(ctx, l.Sources)

	parsed := make([]ParsedEvent, 0)
	errs := append([]error(nil), fetchErrs...)
	for _, res := range fetched {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed = append(parsed, events...)
	}

	result, err := Expand(parsed, ExpandConfig{
		DisplayLocation: l.Location,
		Window:          window,
	})
	if err != nil {
		return result, err
	}

	appLog.Info("ics load completed",
		"sources", len(l.Sources),
		"events", len(result.Events),
		"errors", len(errs),
		"range_start", window.Start.Format(time.RFC3339),
		"range_end", window.End.Format(time.RFC3339),
	)
	return result, errors.Join(errs...)
}
