package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var msk = time.FixedZone("MSK", 3*60*60)

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name   string
		day    int
		hour   int
		minute int
		now    time.Time
		want   time.Time
	}{
		{
			name: "later this week",
			day:  2, hour: 12, minute: 46,
			now:  time.Date(2024, 1, 1, 9, 0, 0, 0, msk), // Monday
			want: time.Date(2024, 1, 3, 9, 46, 0, 0, time.UTC),
		},
		{
			name: "later today",
			day:  0, hour: 18, minute: 0,
			now:  time.Date(2024, 1, 1, 9, 0, 0, 0, msk),
			want: time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		},
		{
			name: "earlier today rolls to next week",
			day:  0, hour: 8, minute: 59,
			now:  time.Date(2024, 1, 1, 9, 0, 0, 0, msk),
			want: time.Date(2024, 1, 8, 5, 59, 0, 0, time.UTC),
		},
		{
			name: "exact slot counts as passed",
			day:  0, hour: 9, minute: 0,
			now:  time.Date(2024, 1, 1, 9, 0, 0, 0, msk),
			want: time.Date(2024, 1, 8, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday just after midnight",
			day:  6, hour: 0, minute: 30,
			now:  time.Date(2024, 1, 27, 23, 0, 0, 0, msk),
			want: time.Date(2024, 1, 27, 21, 30, 0, 0, time.UTC),
		},
		{
			name: "utc input is interpreted in zone",
			day:  1, hour: 1, minute: 0,
			now:  time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC), // Tuesday 01:30 MSK
			want: time.Date(2024, 1, 8, 22, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.day, tt.hour, tt.minute, tt.now, msk)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNextOccurrenceBounds(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, msk)
	for step := 0; step < 7*24*4; step++ {
		now := start.Add(time.Duration(step) * 15 * time.Minute)
		for day := 0; day < 7; day++ {
			got := NextOccurrence(day, 12, 46, now, msk)
			require.True(t, got.After(now), "day %d at %s", day, now)
			require.LessOrEqual(t, got.Sub(now), 7*24*time.Hour)

			local := got.In(msk)
			require.Equal(t, day, mondayFirst(local.Weekday()))
			require.Equal(t, 12, local.Hour())
			require.Equal(t, 46, local.Minute())
		}
	}
}

func TestWeeklyLead(t *testing.T) {
	w := Weekly{Entry: Entry{Day: 2, Hour: 12, Minute: 46}, Location: msk, Lead: time.Minute}

	first := w.Next(time.Date(2024, 1, 1, 9, 0, 0, 0, msk))
	assert.Equal(t, time.Date(2024, 1, 3, 9, 45, 0, 0, time.UTC), first)

	// What the engine asks right after a firing.
	second := w.Next(first)
	assert.Equal(t, first.Add(7*24*time.Hour), second)

	// Inside the lead window the current slot is already committed.
	inside := w.Next(time.Date(2024, 1, 3, 12, 45, 30, 0, msk))
	assert.Equal(t, second, inside)
}

func TestWeeklyWithoutLocation(t *testing.T) {
	w := Weekly{Entry: Entry{Day: 0, Hour: 10, Minute: 0}}
	got := w.Next(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got)
}
