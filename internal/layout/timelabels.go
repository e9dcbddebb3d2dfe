package layout

import (
	"fmt"
	"time"
)

// SlotMinutes is the resolution of the time-label table.
const SlotMinutes = 15

// SlotsPerHour is the number of table rows per grid hour.
const SlotsPerHour = 60 / SlotMinutes

// timeLabels lists "HH:MM" for every quarter hour of a day, 00:00..23:45.
// It is built once and only read afterwards.
var timeLabels, timeLabelIndex = buildTimeLabels()

func buildTimeLabels() ([]string, map[string]int) {
	n := 24 * SlotsPerHour
	labels := make([]string, 0, n)
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		mins := i * SlotMinutes
		label := fmt.Sprintf("%02d:%02d", mins/60, mins%60)
		labels = append(labels, label)
		index[label] = i
	}
	return labels, index
}

// slotIndex returns the row of t's start time, rounded to the nearest
// quarter hour on t's own wall clock, in the label table. A time that rounds
// up into the next day stays on the last row.
func slotIndex(t time.Time) int {
	clock := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	slot := SlotMinutes * time.Minute
	mins := int((clock+slot/2)/slot) * SlotMinutes
	i, ok := timeLabelIndex[fmt.Sprintf("%02d:%02d", mins/60, mins%60)]
	if !ok {
		return len(timeLabels) - 1
	}
	return i
}
