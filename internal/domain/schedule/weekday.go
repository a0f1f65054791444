package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

var dayNames = [7]string{
	"понедельник",
	"вторник",
	"среда",
	"четверг",
	"пятница",
	"суббота",
	"воскресенье",
}

// DayNames returns the accepted weekday names, Monday first.
func DayNames() []string {
	return dayNames[:]
}

func DayName(day int) string {
	if day < 0 || day > 6 {
		return strconv.Itoa(day)
	}
	return dayNames[day]
}

// ParseDay maps a Russian weekday name (case-insensitive) to 0..6.
func ParseDay(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range dayNames {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// ParseClock parses "HH:MM" (single-digit parts allowed).
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hour, minute, nil
}

func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// ParseSlot parses user input of the form "день ЧЧ:ММ".
func ParseSlot(s string, threadID *int) (Entry, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Entry{}, fmt.Errorf("%w: expected \"day HH:MM\", got %q", ErrInvalidTime, s)
	}
	day, err := ParseDay(fields[0])
	if err != nil {
		return Entry{}, err
	}
	hour, minute, err := ParseClock(fields[1])
	if err != nil {
		return Entry{}, err
	}
	return Entry{Day: day, Hour: hour, Minute: minute, ThreadID: threadID}, nil
}
