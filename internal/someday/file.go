package someday

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

// fileFormat is the on-disk shape of the someday list:
//
//	events:
//	  - title: Plan trip
//	    start_date: 2024-03-19
//	    end_date: 2024-03-20
//	    order: 1
type fileFormat struct {
	Events []model.Event `yaml:"events"`
}

// LoadFile reads someday events from a YAML file and returns them keyed by
// id. Entries without an id get a random one; entries with malformed dates
// are dropped with an error log. A missing file yields an empty map.
func LoadFile(path string) (map[string]model.Event, error) {
	if path == "" {
		return map[string]model.Event{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]model.Event{}, nil
		}
		return nil, fmt.Errorf("someday: read %s: %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("someday: parse %s: %w", path, err)
	}

	out := make(map[string]model.Event, len(f.Events))
	for _, e := range f.Events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.IsSomeday = true
		if err := e.Validate(); err != nil {
			appLog.Error("someday: dropping invalid entry", err, "path", path, "title", e.Title)
			continue
		}
		if _, dup := out[e.ID]; dup {
			appLog.Warn("someday: duplicate id; keeping first entry", "path", path, "id", e.ID)
			continue
		}
		out[e.ID] = e
	}

	appLog.Info("someday: loaded", "path", path, "count", len(out))
	return out, nil
}
