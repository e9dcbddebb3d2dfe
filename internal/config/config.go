package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"weekgrid/internal/model"
)

var (
	// ErrEmptyPath is returned when no config path was given.
	ErrEmptyPath = errors.New("config path is empty")
	// ErrNilConfig is returned when Save is called with a nil config.
	ErrNilConfig = errors.New("config is nil")
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns the id used to tag events loaded from this feed.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CaptureConfig controls headless screenshots of the week preview.
type CaptureConfig struct {
	// Enabled turns on a capture after every scheduled refresh.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// URL is the page to capture; empty means the local /week page.
	URL string `yaml:"url" json:"url"`
	// Output is where the PNG is written.
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and preview.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the week grid is drawn in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for reloading ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// SomedayPath is the YAML file with someday events.
	SomedayPath string `yaml:"someday_path" json:"someday_path"`

	// Grid is the default pixel geometry of the week grid.
	Grid model.Grid `yaml:"grid" json:"grid"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultRefreshCron = "*/15 * * * *"
	defaultCacheDir    = "./var/ics-cache"
	defaultColumnWidth = 140
	defaultHourHeight  = 48
	defaultAllDayRow   = 24
	defaultOffsetLeft  = 56
)

// DefaultGrid is a 7 x 140px week with 48px hours.
func DefaultGrid() model.Grid {
	widths := make([]float64, 7)
	for i := range widths {
		widths[i] = defaultColumnWidth
	}
	return model.Grid{
		DayWidths:       widths,
		HourHeight:      defaultHourHeight,
		AllDayRowHeight: defaultAllDayRow,
		OffsetLeft:      defaultOffsetLeft,
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		WeekStart:   "sunday",
		RefreshCron: defaultRefreshCron,
		LogLevel:    "info",
		CacheDir:    defaultCacheDir,
		Grid:        DefaultGrid(),
		ICS:         []ICSConfig{},
		Capture: CaptureConfig{
			Output: "./var/preview.png",
			Width:  1100,
			Height: 1300,
		},
	}
}

// Normalize fills in missing or invalid values so that partially-filled
// configs still produce a usable grid.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday", "monday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		c.WeekStart = d.WeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}

	if len(c.Grid.DayWidths) != 7 {
		c.Grid.DayWidths = d.Grid.DayWidths
	}
	for i, w := range c.Grid.DayWidths {
		if w <= 0 {
			c.Grid.DayWidths[i] = defaultColumnWidth
		}
	}
	if c.Grid.HourHeight <= 0 {
		c.Grid.HourHeight = d.Grid.HourHeight
	}
	if c.Grid.AllDayRowHeight <= 0 {
		c.Grid.AllDayRowHeight = d.Grid.AllDayRowHeight
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Capture.Output == "" {
		c.Capture.Output = d.Capture.Output
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = d.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = d.Capture.Height
	}
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FirstWeekday maps WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weekgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
