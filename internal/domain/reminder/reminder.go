package reminder

import (
	"fmt"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// DateTimeLayout is the input format users type: ДД.ММ.ГГГГ ЧЧ:ММ.
const DateTimeLayout = "02.01.2006 15:04"

var (
	ErrUnknownFrequency = fmt.Errorf("unknown reminder frequency")
	ErrInvalidDateTime  = fmt.Errorf("invalid reminder date and time")
	ErrInPast           = fmt.Errorf("reminder time must be in the future")
	ErrEmptyText        = fmt.Errorf("reminder text is empty")
)

type frequencyInfo struct {
	freq   Frequency
	button string
	short  string
}

var frequencies = []frequencyInfo{
	{FrequencyOnce, "Однократно", "однократно"},
	{FrequencyDaily, "Каждый день", "ежедневно"},
	{FrequencyWeekly, "Каждую неделю", "еженедельно"},
	{FrequencyMonthly, "Каждый месяц", "ежемесячно"},
	{FrequencyYearly, "Каждый год", "ежегодно"},
}

// Reminder is a dated message delivered to a chat once or on a calendar cadence.
type Reminder struct {
	ID        string    `json:"id"`
	DateTime  time.Time `json:"datetime"`
	Frequency Frequency `json:"frequency"`
	Text      string    `json:"text"`
	ThreadID  *int      `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Table maps a chat ID to its reminders in insertion order.
type Table map[int64][]Reminder

func (f Frequency) Valid() bool {
	for _, info := range frequencies {
		if info.freq == f {
			return true
		}
	}
	return false
}

// Button is the keyboard label used to pick f.
func (f Frequency) Button() string {
	for _, info := range frequencies {
		if info.freq == f {
			return info.button
		}
	}
	return "Неизвестно"
}

// Adverb is the lower-case form shown in lists.
func (f Frequency) Adverb() string {
	for _, info := range frequencies {
		if info.freq == f {
			return info.short
		}
	}
	return "неизвестно"
}

// Buttons returns keyboard labels in display order.
func Buttons() []string {
	out := make([]string, 0, len(frequencies))
	for _, info := range frequencies {
		out = append(out, info.button)
	}
	return out
}

// ParseButton maps a keyboard label back to its frequency.
func ParseButton(label string) (Frequency, error) {
	label = strings.TrimSpace(label)
	for _, info := range frequencies {
		if info.button == label {
			return info.freq, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, label)
}

// ParseDateTime reads ДД.ММ.ГГГГ ЧЧ:ММ in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
	}
	return t, nil
}

// Validate checks a reminder that is about to be created.
func (r Reminder) Validate(now time.Time) error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, r.Frequency)
	}
	if !r.DateTime.After(now) {
		return ErrInPast
	}
	return nil
}

// Preview shortens the text for list output.
func (r Reminder) Preview(limit int) string {
	runes := []rune(r.Text)
	if len(runes) <= limit {
		return r.Text
	}
	return string(runes[:limit]) + "..."
}

func (r Reminder) InThread(threadID *int) bool {
	if threadID == nil {
		return true
	}
	return r.ThreadID != nil && *r.ThreadID == *threadID
}

func (t Table) Clone() Table {
	out := make(Table, len(t))
	for chatID, items := range t {
		cp := make([]Reminder, len(items))
		copy(cp, items)
		out[chatID] = cp
	}
	return out
}

func (t Table) Len() int {
	n := 0
	for _, items := range t {
		n += len(items)
	}
	return n
}
