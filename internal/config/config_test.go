package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != defaultListen {
		t.Fatalf("expected default listen, got %q", cfg.Listen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 perms, got %v", info.Mode().Perm())
	}
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "week_start: Monday\ngrid:\n  hour_height: 60\n  day_widths: [100, 100, 0, 100, 100, 100, 100]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FirstWeekday() != time.Monday {
		t.Fatalf("expected monday week start, got %v", cfg.WeekStart)
	}
	if cfg.Grid.HourHeight != 60 {
		t.Fatalf("expected hour height 60, got %v", cfg.Grid.HourHeight)
	}
	if cfg.Grid.DayWidths[2] != defaultColumnWidth {
		t.Fatalf("expected zero width replaced, got %v", cfg.Grid.DayWidths[2])
	}
	if cfg.Grid.AllDayRowHeight != defaultAllDayRow {
		t.Fatalf("expected default all-day row height, got %v", cfg.Grid.AllDayRowHeight)
	}
	if cfg.RefreshCron != defaultRefreshCron {
		t.Fatalf("expected default refresh, got %q", cfg.RefreshCron)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ICS = append(cfg.ICS, ICSConfig{URL: "https://example.com/cal.ics", Name: "work"})

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.ICS) != 1 || got.ICS[0].SourceID() != "work" {
		t.Fatalf("unexpected sources %+v", got.ICS)
	}
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	if _, err := Load(""); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Nowhere/Special"
	loc, err := cfg.Location()
	if err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
	if loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}
}
