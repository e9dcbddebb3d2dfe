package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "weekgrid/internal/log"
)

// Defaults match the preview page rendered with the default grid.
const (
	DefaultWidth   = 1100
	DefaultHeight  = 1300
	DefaultTimeout = 30 * time.Second

	// ReadySelector is present once the week preview has rendered.
	ReadySelector = `[data-ready="true"]`
)

var (
	ErrNoURL    = errors.New("capture: URL is required")
	ErrNoOutput = errors.New("capture: OutputPath is required")
)

// Options defines one screenshot of the week preview.
type Options struct {
	// URL of the page, e.g. "http://127.0.0.1:8080/week?date=2024-03-19".
	URL string
	// OutputPath is where the PNG is written.
	OutputPath string
	// Width and Height are the viewport size; zero means the defaults.
	Width  int
	Height int
	// Timeout bounds the whole capture; zero means DefaultTimeout.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return ErrNoURL
	}
	if o.OutputPath == "" {
		return ErrNoOutput
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// WeekPNG drives headless Chromium to opts.URL, waits for ReadySelector and
// writes a full-page PNG to opts.OutputPath.
func WeekPNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("capture completed", "url", opts.URL, "output", opts.OutputPath, "bytes", len(png))
	return nil
}
