package schedule

import "fmt"

var (
	ErrInvalidDay  = fmt.Errorf("invalid day of week")
	ErrInvalidTime = fmt.Errorf("invalid time of day")
)

// Entry is one weekly slot owned by a chat. Day is 0 (Monday) through 6 (Sunday).
type Entry struct {
	Day      int  `json:"day"`
	Hour     int  `json:"hours"`
	Minute   int  `json:"minutes"`
	ThreadID *int `json:"thread_id,omitempty"`
}

// Table maps a chat ID to its entries in insertion order.
type Table map[int64][]Entry

func NewEntry(day, hour, minute int, threadID *int) (Entry, error) {
	e := Entry{Day: day, Hour: hour, Minute: minute, ThreadID: threadID}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (e Entry) Validate() error {
	if e.Day < 0 || e.Day > 6 {
		return fmt.Errorf("%w: %d", ErrInvalidDay, e.Day)
	}
	if e.Hour < 0 || e.Hour > 23 || e.Minute < 0 || e.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, e.Hour, e.Minute)
	}
	return nil
}

// SameSlot reports whether both entries describe the same day, time and thread.
func (e Entry) SameSlot(o Entry) bool {
	return e.Day == o.Day && e.Hour == o.Hour && e.Minute == o.Minute && SameThread(e.ThreadID, o.ThreadID)
}

// InThread reports whether the entry belongs to the given thread.
// A nil thread matches every entry.
func (e Entry) InThread(threadID *int) bool {
	if threadID == nil {
		return true
	}
	return e.ThreadID != nil && *e.ThreadID == *threadID
}

// String renders the entry the way users type it, e.g. "среда 12:46".
func (e Entry) String() string {
	return DayName(e.Day) + " " + FormatClock(e.Hour, e.Minute)
}

func SameThread(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for chatID, entries := range t {
		cp := make([]Entry, len(entries))
		copy(cp, entries)
		out[chatID] = cp
	}
	return out
}

// Len returns the total number of entries across all chats.
func (t Table) Len() int {
	n := 0
	for _, entries := range t {
		n += len(entries)
	}
	return n
}
