package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"weekgrid/internal/config"
	"weekgrid/internal/ics"
	"weekgrid/internal/layout"
	"weekgrid/internal/model"
	"weekgrid/internal/someday"
)

type fakeSource struct {
	events []model.Event
	calls  int
}

func (f *fakeSource) Load(_ context.Context, _ model.Window) (ics.ExpandResult, error) {
	f.calls++
	return ics.ExpandResult{Events: f.events}, nil
}

func testEvent(id, start, end string) model.Event {
	return model.Event{ID: id, Title: id, StartDate: start, EndDate: end, Position: model.DefaultPosition()}
}

func newTestServer(t *testing.T, src EventSource) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Grid = model.Grid{
		DayWidths:       []float64{100, 100, 100, 100, 100, 100, 100},
		HourHeight:      60,
		AllDayRowHeight: 24,
	}
	s := NewServer(cfg, src)
	s.now = func() time.Time { return time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestHealthSkipsBasicAuth(t *testing.T) {
	s := newTestServer(t, nil)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/week", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWeekEndpointArrangesAndCaches(t *testing.T) {
	src := &fakeSource{events: []model.Event{
		testEvent("A", "2024-03-19T07:00:00Z", "2024-03-19T08:00:00Z"),
		testEvent("B", "2024-03-19T07:30:00Z", "2024-03-19T08:30:00Z"),
	}}
	s := newTestServer(t, src)
	h := s.Handler()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/week?date=2024-03-19", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp weekResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Timed) != 2 || !resp.Timed[1].Event.Position.IsOverlapping {
			t.Fatalf("unexpected timed events %+v", resp.Timed)
		}
		if resp.Timed[1].Event.Position.HorizontalOrder != 2 {
			t.Fatalf("expected B second, got %+v", resp.Timed[1].Event.Position)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected cached second request, got %d loads", src.calls)
	}
}

func TestWeekEndpointRejectsBadDate(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/week?date=19/03/2024", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestArrangeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{
		"date": "2024-03-19",
		"draftIds": ["B"],
		"events": [
			{"id": "A", "title": "A", "startDate": "2024-03-19T07:00:00Z", "endDate": "2024-03-19T08:00:00Z", "position": {"widthMultiplier": 1, "horizontalOrder": 1}},
			{"id": "B", "title": "B", "startDate": "2024-03-19T07:30:00Z", "endDate": "2024-03-19T08:30:00Z", "position": {"widthMultiplier": 1, "horizontalOrder": 1}}
		]
	}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/week", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var week layout.Week
	if err := json.NewDecoder(rec.Body).Decode(&week); err != nil {
		t.Fatal(err)
	}
	if len(week.Timed) != 2 {
		t.Fatalf("expected 2 events, got %d", len(week.Timed))
	}
	if week.Timed[0].Rect.Width != 38 {
		t.Fatalf("expected half column for A, got %+v", week.Timed[0].Rect)
	}
	if !week.Timed[1].Draft || week.Timed[1].Rect.Width != 100 {
		t.Fatalf("expected full-width draft B, got %+v", week.Timed[1])
	}
}

func TestArrangeEndpointRejectsMalformedTimestamps(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"events": [{"id": "A", "startDate": "7am", "endDate": "2024-03-19T08:00:00Z"}]}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/week", strings.NewReader(body)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestAdditionsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{
		"start": "2024-03-24T00:00:00Z",
		"end": "2024-03-30T23:59:59Z",
		"source": "drag-to-edge",
		"renderedIds": ["shown"],
		"events": [
			{"id": "shown", "startDate": "2024-03-25T09:00:00Z", "endDate": "2024-03-25T10:00:00Z"},
			{"id": "moved", "startDate": "2024-03-26T09:00:00Z", "endDate": "2024-03-26T10:00:00Z"},
			{"id": "old", "startDate": "2024-03-19T09:00:00Z", "endDate": "2024-03-19T10:00:00Z"}
		]
	}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/view/additions", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if ids := resp["ids"]; len(ids) != 1 || ids[0] != "moved" {
		t.Fatalf("expected [moved], got %v", ids)
	}
}

func TestSomedayEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "someday.yaml")
	body := "events:\n  - id: trip\n    start_date: \"2024-03-19\"\n    end_date: \"2024-03-20\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s := newTestServer(t, nil)
	s.cfg.SomedayPath = path

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/someday?date=2024-03-19", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp someday.Categorized
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if ids := resp.Columns[someday.ColumnWeek].EventIDs; len(ids) != 1 || ids[0] != "trip" {
		t.Fatalf("expected trip in week column, got %v", ids)
	}
}

func TestPreviewPageIsReady(t *testing.T) {
	src := &fakeSource{events: []model.Event{
		testEvent("A", "2024-03-19T07:00:00Z", "2024-03-19T08:00:00Z"),
	}}
	s := newTestServer(t, src)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/week?date=2024-03-19", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := rec.Body.String()
	if !strings.Contains(out, `data-ready="true"`) {
		t.Fatalf("expected ready marker")
	}
	if !strings.Contains(out, `data-id="A"`) {
		t.Fatalf("expected event A in preview")
	}
}
