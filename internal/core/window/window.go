// Package window derives calendar-day time windows in the ledger's
// operating timezone from a single captured timestamp
package window

import (
	"sync"
	"time"
)

// zoneName is the timezone all daily quotas and tallies are reckoned in
const zoneName = "Asia/Seoul"

var (
	zoneOnce sync.Once
	zone     *time.Location
)

// Zone returns the ledger's operating timezone
// Panics if the zone database is missing, that's a deployment defect
func Zone() *time.Location {
	zoneOnce.Do(func() {
		loc, err := time.LoadLocation(zoneName)
		if err != nil {
			panic("window: load " + zoneName + ": " + err.Error())
		}
		zone = loc
	})
	return zone
}

// Window is a half-open time interval [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Day returns the calendar-day window containing ts, reckoned in the
// operating timezone. Both bounds derive from the same instant so a
// request spanning midnight cannot mix two days
func Day(ts time.Time) Window {
	local := ts.In(Zone())
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, Zone())
	return Window{Start: start, End: start.Add(24 * time.Hour)}
}

// Today is Day(now) with now taken once
func Today() Window {
	return Day(time.Now())
}
