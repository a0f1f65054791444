package telegram

import (
	"sync"
	"time"

	"meet_link_bot/internal/domain/reminder"
)

// ConversationKey identifies one user's dialog inside one chat.
type ConversationKey struct {
	ChatID int64
	UserID int64
}

type Step int

const (
	StepNone Step = iota
	StepAddSchedule
	StepDeleteSchedule
	StepReminderTime
	StepReminderFrequency
	StepReminderText
	StepDeleteReminder
)

func (s Step) String() string {
	switch s {
	case StepAddSchedule:
		return "add_schedule"
	case StepDeleteSchedule:
		return "delete_schedule"
	case StepReminderTime:
		return "reminder_time"
	case StepReminderFrequency:
		return "reminder_frequency"
	case StepReminderText:
		return "reminder_text"
	case StepDeleteReminder:
		return "delete_reminder"
	default:
		return "none"
	}
}

// Dialog is the state of a multi-message command plus whatever the user has
// entered so far.
type Dialog struct {
	Step     Step
	ThreadID *int

	// reminder draft
	At        time.Time
	Frequency reminder.Frequency

	// ReminderIDs lists the reminders offered for deletion, numbered from 1.
	ReminderIDs []string

	startedAt time.Time
}

// Conversations holds in-progress dialogs. Dialogs idle longer than ttl are
// treated as abandoned.
type Conversations struct {
	mu      sync.Mutex
	dialogs map[ConversationKey]Dialog
	ttl     time.Duration
	now     func() time.Time
}

func NewConversations(ttl time.Duration) *Conversations {
	return &Conversations{
		dialogs: make(map[ConversationKey]Dialog),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Conversations) Get(key ConversationKey) (Dialog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.dialogs[key]
	if !ok {
		return Dialog{}, false
	}
	if c.ttl > 0 && c.now().Sub(d.startedAt) > c.ttl {
		delete(c.dialogs, key)
		return Dialog{}, false
	}
	return d, true
}

// Set stores d and restarts its idle clock.
func (c *Conversations) Set(key ConversationKey, d Dialog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d.startedAt = c.now()
	c.dialogs[key] = d
}

// Clear reports whether a dialog was in progress.
func (c *Conversations) Clear(key ConversationKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.dialogs[key]
	delete(c.dialogs, key)
	return ok
}

func (c *Conversations) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.dialogs)
}
