package schedule

import "time"

// NextOccurrence returns the first instant strictly after now whose wall clock
// in loc falls on day (0=Monday) at hour:minute. A slot equal to now counts as
// already passed, so the result is a week later. The result is in UTC.
func NextOccurrence(day, hour, minute int, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	current := mondayFirst(local.Weekday())
	ahead := (day - current + 7) % 7

	target := time.Date(local.Year(), local.Month(), local.Day()+ahead, hour, minute, 0, 0, loc)
	if !target.After(now) {
		target = time.Date(local.Year(), local.Month(), local.Day()+ahead+7, hour, minute, 0, 0, loc)
	}
	return target.UTC()
}

func mondayFirst(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Weekly fires once a week for Entry. Lead moves each firing earlier by a fixed
// amount without changing which slot it belongs to.
//
// It satisfies cron.Schedule.
type Weekly struct {
	Entry    Entry
	Location *time.Location
	Lead     time.Duration
}

func (w Weekly) Next(t time.Time) time.Time {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	return NextOccurrence(w.Entry.Day, w.Entry.Hour, w.Entry.Minute, t.Add(w.Lead), loc).Add(-w.Lead)
}
