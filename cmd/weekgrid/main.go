package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"weekgrid/internal/capture"
	"weekgrid/internal/config"
	"weekgrid/internal/ics"
	"weekgrid/internal/layout"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
	"weekgrid/internal/someday"
	"weekgrid/internal/web"
)

const version = "0.1.0"

func main() {
	// .env is optional.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "weekgrid",
		Usage:   "Lay out calendar events on a week grid.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "./weekgrid.yaml",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"WEEKGRID_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			layoutCommand(),
			somedayCommand(),
			captureCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("weekgrid failed", err)
		os.Exit(1)
	}
}

// setup loads the config and applies the log level; LOG_LEVEL wins over the
// file.
func setup(c *cli.Context) (*config.Config, *time.Location, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}

	level := cfg.LogLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("invalid timezone; using UTC", err)
	}
	appLog.Debug("effective config",
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"week_start", cfg.WeekStart,
		"refresh", cfg.RefreshCron,
		"ics_count", len(cfg.ICS),
	)
	return cfg, loc, nil
}

func newLoader(cfg *config.Config, loc *time.Location) *ics.Loader {
	sources := make([]ics.Source, 0, len(cfg.ICS))
	for _, src := range cfg.ICS {
		if src.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: src.SourceID(), URL: src.URL})
	}
	return &ics.Loader{
		Fetcher:  ics.NewFetcher(cfg.CacheDir, nil),
		Sources:  sources,
		Location: loc,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and week preview.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "listen address (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, loc, err := setup(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				cfg.Listen = l
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(cfg, newLoader(cfg, loc))

			sched := cron.New(cron.WithLocation(loc))
			if _, err := sched.AddFunc(cfg.RefreshCron, func() { refresh(ctx, cfg, srv) }); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			sched.Start()
			defer func() { <-sched.Stop().Done() }()

			go refresh(ctx, cfg, srv)

			return srv.Serve(ctx)
		},
	}
}

// refresh reloads the feeds and, when enabled, re-captures the preview.
func refresh(ctx context.Context, cfg *config.Config, srv *web.Server) {
	start := time.Now()
	if err := srv.Refresh(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err)
		return
	}
	appLog.Info("scheduled refresh completed", "elapsed", time.Since(start).String())

	if !cfg.Capture.Enabled {
		return
	}
	if err := capture.WeekPNG(ctx, captureOptions(cfg, "")); err != nil {
		appLog.Error("scheduled capture failed", err)
	}
}

func captureOptions(cfg *config.Config, url string) capture.Options {
	if url == "" {
		url = cfg.Capture.URL
	}
	if url == "" {
		url = "http://" + cfg.Listen + "/week"
	}
	return capture.Options{
		URL:        url,
		OutputPath: cfg.Capture.Output,
		Width:      cfg.Capture.Width,
		Height:     cfg.Capture.Height,
	}
}

func layoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "layout",
		Usage: "Print the positioned events of one week as JSON.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "any day of the week, YYYY-MM-DD (default today)"},
			&cli.StringFlag{Name: "file", Usage: "JSON array of events to use instead of the ICS feeds"},
		},
		Action: func(c *cli.Context) error {
			cfg, loc, err := setup(c)
			if err != nil {
				return err
			}
			day, err := parseDay(c.String("date"), loc)
			if err != nil {
				return err
			}
			window := layout.WeekOf(day, cfg.FirstWeekday())

			var events []model.Event
			if path := c.String("file"); path != "" {
				events, err = readEventsFile(path)
				if err != nil {
					return err
				}
			} else {
				res, err := newLoader(cfg, loc).Load(c.Context, window)
				if err != nil && len(res.Events) == 0 {
					return err
				}
				events = res.Events
			}

			return printJSON(c.App.Writer, layout.Arrange(events, window, cfg.Grid, nil))
		},
	}
}

func somedayCommand() *cli.Command {
	return &cli.Command{
		Name:  "someday",
		Usage: "Print the week and month someday columns as JSON.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "any day of the week, YYYY-MM-DD (default today)"},
		},
		Action: func(c *cli.Context) error {
			cfg, loc, err := setup(c)
			if err != nil {
				return err
			}
			day, err := parseDay(c.String("date"), loc)
			if err != nil {
				return err
			}
			events, err := someday.LoadFile(cfg.SomedayPath)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, someday.Categorize(events, layout.WeekOf(day, cfg.FirstWeekday())))
		},
	}
}

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Screenshot the week preview of a running server.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "page to capture (default http://<listen>/week)"},
			&cli.StringFlag{Name: "output", Usage: "PNG path (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := setup(c)
			if err != nil {
				return err
			}
			opts := captureOptions(cfg, c.String("url"))
			if out := c.String("output"); out != "" {
				opts.OutputPath = out
			}
			return capture.WeekPNG(c.Context, opts)
		},
	}
}

func parseDay(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", v)
	}
	return t, nil
}

// readEventsFile loads a JSON event list, rejecting malformed entries.
func readEventsFile(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return events, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
