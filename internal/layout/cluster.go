package layout

import (
	"cmp"
	"math"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

// interval is the parsed time range of one input event.
type interval struct {
	start, end time.Time
	ok         bool
}

func (a interval) overlaps(b interval) bool {
	if !a.ok || !b.ok {
		return false
	}
	return a.start.Before(b.end) && a.end.After(b.start)
}

func (a interval) sameRange(b interval) bool {
	return a.ok && b.ok && a.start.Equal(b.start) && a.end.Equal(b.end)
}

// AdjustOverlaps assigns layout metadata to timed events. Events are
// grouped into clusters of transitively overlapping members; every member
// of a cluster with two or more events gets IsOverlapping, a shared
// WidthMultiplier of 1/size and a 1-based HorizontalOrder by start time.
// Singletons keep their position as given.
//
// The result has the same length and order as events. Every element is a
// deep copy; the input is never modified. Cluster discovery scans all
// unvisited events for each dequeued member, O(n²) in the worst case, which
// is fine for the tens of events a week column holds.
func AdjustOverlaps(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	spans := make([]interval, len(events))
	for i, e := range events {
		out[i] = e.Clone()
		start, startOK := e.Start()
		end, endOK := e.End()
		spans[i] = interval{start: start, end: end, ok: startOK && endOK}
		if !spans[i].ok {
			appLog.Debug("layout: event has malformed timestamps; treating as non-overlapping",
				"id", e.ID, "start", e.StartDate, "end", e.EndDate)
		}
	}

	// rank is each event's position in the start-sorted scan order and
	// doubles as the stable tie-break for equal starts.
	scan := make([]int, len(events))
	for i := range scan {
		scan[i] = i
	}
	slices.SortStableFunc(scan, func(a, b int) int {
		return compareStart(spans[a], spans[b])
	})
	rank := make([]int, len(events))
	for r, i := range scan {
		rank[i] = r
	}

	visited := make([]bool, len(events))
	var collator *collate.Collator

	for _, seed := range scan {
		if visited[seed] {
			continue
		}
		members := collectCluster(seed, spans, visited)
		if len(members) < 2 {
			continue
		}

		slices.SortStableFunc(members, func(a, b int) int {
			if c := compareStart(spans[a], spans[b]); c != 0 {
				return c
			}
			return cmp.Compare(rank[a], rank[b])
		})

		if allSameRange(members, spans) {
			if collator == nil {
				collator = collate.New(language.English)
			}
			slices.SortStableFunc(members, func(a, b int) int {
				return collator.CompareString(out[a].Title, out[b].Title)
			})
		}

		width := widthMultiplier(len(members))
		for order, i := range members {
			out[i].Position.IsOverlapping = true
			out[i].Position.WidthMultiplier = width
			out[i].Position.HorizontalOrder = order + 1
		}
	}

	return out
}

// collectCluster returns the connected component of the overlap graph that
// contains seed, marking every member visited. It walks the graph with an
// explicit queue.
func collectCluster(seed int, spans []interval, visited []bool) []int {
	visited[seed] = true
	members := []int{seed}
	queue := []int{seed}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for j := range spans {
			if visited[j] || !spans[cur].overlaps(spans[j]) {
				continue
			}
			visited[j] = true
			members = append(members, j)
			queue = append(queue, j)
		}
	}
	return members
}

func allSameRange(members []int, spans []interval) bool {
	first := spans[members[0]]
	for _, i := range members[1:] {
		if !first.sameRange(spans[i]) {
			return false
		}
	}
	return true
}

// compareStart orders by start time; malformed events sort last.
func compareStart(a, b interval) int {
	switch {
	case a.ok && b.ok:
		return a.start.Compare(b.start)
	case a.ok:
		return -1
	case b.ok:
		return 1
	default:
		return 0
	}
}

// widthMultiplier is 1/size rounded half away from zero to two decimals.
func widthMultiplier(size int) float64 {
	return math.Round((1/float64(size))*100) / 100
}
