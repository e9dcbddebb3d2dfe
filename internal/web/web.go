package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"weekgrid/internal/config"
	"weekgrid/internal/ics"
	"weekgrid/internal/layout"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
	"weekgrid/internal/someday"
)

const (
	weekCacheTTL = 30 * time.Second
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

// EventSource supplies the events of one view window. *ics.Loader is the
// production implementation.
type EventSource interface {
	Load(ctx context.Context, window model.Window) (ics.ExpandResult, error)
}

// Server exposes the layout core over HTTP.
type Server struct {
	cfg    *config.Config
	loc    *time.Location
	source EventSource
	mux    *http.ServeMux
	now    func() time.Time

	// Expanded feed events per window start; feeds are slow, layout is not.
	cacheMu sync.RWMutex
	cache   map[int64]*weekCache
}

type weekCache struct {
	result    ics.ExpandResult
	updatedAt time.Time
}

// NewServer constructs a Server. A nil source serves an empty calendar.
func NewServer(cfg *config.Config, source EventSource) *Server {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; using UTC", err, "timezone", cfg.Timezone)
	}
	s := &Server{
		cfg:    cfg,
		loc:    loc,
		source: source,
		mux:    http.NewServeMux(),
		now:    time.Now,
		cache:  make(map[int64]*weekCache),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/week", s.handleWeek)
	s.mux.HandleFunc("POST /api/week", s.handleArrange)
	s.mux.HandleFunc("POST /api/view/additions", s.handleAdditions)
	s.mux.HandleFunc("GET /api/someday", s.handleSomeday)
	s.mux.HandleFunc("GET /week", s.handlePreviewPage)
	s.mux.HandleFunc("GET /preview.png", s.handlePreviewPNG)
}

// Serve runs the HTTP server until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Refresh reloads the current week from the source, bypassing the cache.
// The scheduler calls this on every tick.
func (s *Server) Refresh(ctx context.Context) error {
	window := s.weekOf(s.now())
	_, err := s.loadWeek(ctx, window, true)
	return err
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="weekgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// weekResponse is the JSON shape of /api/week.
type weekResponse struct {
	layout.Week
	TimeZone      string   `json:"timezone"`
	WeekStart     string   `json:"weekStart"`
	TruncatedUIDs []string `json:"truncatedUids,omitempty"`
}

// handleWeek lays out the feed events of the week containing ?date=.
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.buildWeek(r.Context(), day)
	if err != nil {
		appLog.Error("api week failed", err, "date", day.Format(dateLayout))
		writeError(w, http.StatusBadGateway, "failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) buildWeek(ctx context.Context, day time.Time) (weekResponse, error) {
	window := s.weekOf(day)
	res, err := s.loadWeek(ctx, window, false)
	if err != nil && len(res.Events) == 0 {
		return weekResponse{}, err
	}
	return weekResponse{
		Week:          layout.Arrange(res.Events, window, s.cfg.Grid, nil),
		TimeZone:      s.loc.String(),
		WeekStart:     s.cfg.WeekStart,
		TruncatedUIDs: res.TruncatedUIDs,
	}, nil
}

// arrangeRequest is the body of POST /api/week.
type arrangeRequest struct {
	Events   []model.Event `json:"events"`
	Date     string        `json:"date,omitempty"`
	Start    *time.Time    `json:"start,omitempty"`
	End      *time.Time    `json:"end,omitempty"`
	Grid     *model.Grid   `json:"grid,omitempty"`
	DraftIDs []string      `json:"draftIds,omitempty"`
}

// handleArrange lays out caller-supplied events. Malformed events are
// rejected here, before they reach the layout core.
func (s *Server) handleArrange(w http.ResponseWriter, r *http.Request) {
	var req arrangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateEvents(req.Events); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	window, err := s.requestWindow(req.Date, req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grid := s.cfg.Grid
	if req.Grid != nil {
		grid = *req.Grid
	}
	drafts := make(map[string]bool, len(req.DraftIDs))
	for _, id := range req.DraftIDs {
		drafts[id] = true
	}

	writeJSON(w, http.StatusOK, layout.Arrange(req.Events, window, grid, drafts))
}

// additionsRequest is the body of POST /api/view/additions.
type additionsRequest struct {
	Events      []model.Event           `json:"events"`
	Start       time.Time               `json:"start"`
	End         time.Time               `json:"end"`
	Source      layout.NavigationSource `json:"source"`
	RenderedIDs []string                `json:"renderedIds"`
}

// handleAdditions reports which events must be inserted after the window
// moved underneath a drag.
func (s *Server) handleAdditions(w http.ResponseWriter, r *http.Request) {
	var req additionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.End.Before(req.Start) {
		writeError(w, http.StatusBadRequest, "end is before start")
		return
	}

	ids := make([]string, 0)
	for _, e := range req.Events {
		if layout.ShouldAddToViewAfterDragToEdge(e, req.Start, req.End, req.Source, req.RenderedIDs) {
			ids = append(ids, e.ID)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

// handleSomeday buckets the someday file against the week of ?date=.
func (s *Server) handleSomeday(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := someday.LoadFile(s.cfg.SomedayPath)
	if err != nil {
		appLog.Error("api someday failed", err, "path", s.cfg.SomedayPath)
		writeError(w, http.StatusInternalServerError, "failed to load someday events")
		return
	}
	writeJSON(w, http.StatusOK, someday.Categorize(events, s.weekOf(day)))
}

// handlePreviewPNG serves the last captured screenshot.
func (s *Server) handlePreviewPNG(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Capture.Output)
}

// loadWeek returns cached feed events for window, loading them when the
// entry is stale or force is set.
func (s *Server) loadWeek(ctx context.Context, window model.Window, force bool) (ics.ExpandResult, error) {
	if s.source == nil {
		return ics.ExpandResult{Events: []model.Event{}}, nil
	}
	key := window.Start.Unix()

	if !force {
		s.cacheMu.RLock()
		c := s.cache[key]
		s.cacheMu.RUnlock()
		if c != nil && s.now().Sub(c.updatedAt) < weekCacheTTL {
			return c.result, nil
		}
	}

	res, err := s.source.Load(ctx, window)
	if err != nil {
		appLog.Error("event source reported errors", err, "range_start", window.Start.Format(time.RFC3339))
		if len(res.Events) == 0 {
			return res, err
		}
	}

	s.cacheMu.Lock()
	s.cache[key] = &weekCache{result: res, updatedAt: s.now()}
	s.cacheMu.Unlock()
	return res, nil
}

func (s *Server) weekOf(t time.Time) model.Window {
	return layout.WeekOf(t.In(s.loc), s.cfg.FirstWeekday())
}

// parseDate reads YYYY-MM-DD in the display zone; empty means today.
func (s *Server) parseDate(v string) (time.Time, error) {
	if v == "" {
		return s.now().In(s.loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, v, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", v)
	}
	return t, nil
}

func (s *Server) requestWindow(date string, start, end *time.Time) (model.Window, error) {
	if start != nil && end != nil {
		if end.Before(*start) {
			return model.Window{}, errors.New("end is before start")
		}
		return model.Window{Start: *start, End: *end}, nil
	}
	day, err := s.parseDate(date)
	if err != nil {
		return model.Window{}, err
	}
	return s.weekOf(day), nil
}

func validateEvents(events []model.Event) error {
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate event id %q", e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
