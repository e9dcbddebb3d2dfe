package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"weekgrid/internal/layout"
	appLog "weekgrid/internal/log"
)

//go:embed templates/week.html.tmpl
var templatesFS embed.FS

var weekTemplate = template.Must(template.ParseFS(templatesFS, "templates/week.html.tmpl"))

type previewDay struct {
	Label       string
	Left, Width float64
}

type previewHour struct {
	Label string
	Top   float64
}

type previewPage struct {
	Start       string
	StripHeight float64
	GridHeight  float64
	Days        []previewDay
	Hours       []previewHour
	Timed       []layout.Placed
	AllDay      []layout.Placed
}

// handlePreviewPage renders the positioned week as static HTML. The root
// element carries data-ready="true" so the capturer knows when to shoot.
func (s *Server) handlePreviewPage(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	week, err := s.buildWeek(r.Context(), day)
	if err != nil {
		appLog.Error("preview page failed", err)
		http.Error(w, "failed to load events", http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := weekTemplate.Execute(&buf, s.previewData(week.Week)); err != nil {
		appLog.Error("preview template failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) previewData(week layout.Week) previewPage {
	grid := s.cfg.Grid
	page := previewPage{
		Start:      week.Window.Start.Format(dateLayout),
		GridHeight: grid.HourHeight * 24,
		Timed:      week.Timed,
		AllDay:     week.AllDay,
	}

	rows := 1
	for _, p := range week.AllDay {
		rows = max(rows, p.Event.Row)
	}
	page.StripHeight = grid.AllDayRowHeight * float64(rows+1)

	left := grid.OffsetLeft
	for i, width := range grid.DayWidths {
		d := week.Window.Start.AddDate(0, 0, i)
		page.Days = append(page.Days, previewDay{
			Label: d.Format("Mon 2"),
			Left:  left,
			Width: width,
		})
		left += width
	}
	for h := 0; h < 24; h++ {
		page.Hours = append(page.Hours, previewHour{
			Label: fmt.Sprintf("%02d:00", h),
			Top:   grid.HourHeight * float64(h),
		})
	}
	return page
}
