package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": LevelDebug, "WARN": LevelWarn, "error": LevelError, "": LevelInfo, "loud": LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
}

func TestLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	Info("hidden", "k", 1)
	Error("shown", errors.New("boom"), "id", "x")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("did not expect info line at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "err=boom") || !strings.Contains(out, "id=x") {
		t.Fatalf("expected error line with kv pairs, got %s", out)
	}
}
