package reminder

import "time"

// Recurrence fires first at At and then according to Frequency. Monthly and
// yearly steps are counted from At and clamped to the end of shorter months,
// so a reminder on the 31st fires on the 30th in April and returns to the 31st
// in May.
//
// It satisfies cron.Schedule; a zero result means no further firings.
type Recurrence struct {
	At        time.Time
	Frequency Frequency
}

func (r Recurrence) Next(t time.Time) time.Time {
	if t.Before(r.At) {
		return r.At
	}
	if r.Frequency == FrequencyOnce || !r.Frequency.Valid() {
		return time.Time{}
	}

	k := r.estimateSteps(t) - 1
	if k < 1 {
		k = 1
	}
	for {
		candidate := r.step(k)
		if candidate.After(t) {
			return candidate
		}
		k++
	}
}

func (r Recurrence) estimateSteps(t time.Time) int {
	switch r.Frequency {
	case FrequencyDaily:
		return int(t.Sub(r.At) / (24 * time.Hour))
	case FrequencyWeekly:
		return int(t.Sub(r.At) / (7 * 24 * time.Hour))
	case FrequencyMonthly:
		lt := t.In(r.At.Location())
		return (lt.Year()-r.At.Year())*12 + int(lt.Month()) - int(r.At.Month())
	case FrequencyYearly:
		return t.In(r.At.Location()).Year() - r.At.Year()
	}
	return 1
}

func (r Recurrence) step(k int) time.Time {
	switch r.Frequency {
	case FrequencyDaily:
		return r.At.AddDate(0, 0, k)
	case FrequencyWeekly:
		return r.At.AddDate(0, 0, 7*k)
	case FrequencyMonthly:
		return addMonthsClamped(r.At, k)
	case FrequencyYearly:
		return addMonthsClamped(r.At, 12*k)
	}
	return time.Time{}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return first.AddDate(0, 0, day-1)
}

// Expired reports whether the reminder can never fire again after now.
func (r Reminder) Expired(now time.Time) bool {
	return Recurrence{At: r.DateTime, Frequency: r.Frequency}.Next(now).IsZero()
}
