package capture

import (
	"context"
	"errors"
	"testing"
)

func TestWeekPNGValidatesOptions(t *testing.T) {
	if err := WeekPNG(context.Background(), Options{OutputPath: "x.png"}); !errors.Is(err, ErrNoURL) {
		t.Fatalf("expected ErrNoURL, got %v", err)
	}
	if err := WeekPNG(context.Background(), Options{URL: "http://localhost/week"}); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{URL: "http://localhost/week", OutputPath: "out.png"}
	if err := o.normalize(); err != nil {
		t.Fatal(err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeout {
		t.Fatalf("unexpected defaults %+v", o)
	}
}
