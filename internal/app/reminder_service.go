package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"
	"meet_link_bot/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrReminderNotFound = fmt.Errorf("reminder not found")

// ReminderNotifier delivers a fired reminder.
type ReminderNotifier interface {
	SendReminder(ctx context.Context, chatID int64, r reminder.Reminder) error
}

type armedReminder struct {
	chatID   int64
	id       string
	reminder reminder.Reminder
	tid      TriggerID
}

// ReminderService owns the reminder table. It mirrors ScheduleService: one
// mutex over store access and trigger bookkeeping, and a token per trigger.
type ReminderService struct {
	mu       sync.Mutex
	store    reminder.Store
	engine   TriggerEngine
	notifier ReminderNotifier
	loc      *time.Location
	logger   *logrus.Entry
	now      func() time.Time
	newID    func() string

	armed     map[uint64]armedReminder
	nextToken uint64
}

func NewReminderService(
	store reminder.Store,
	engine TriggerEngine,
	notifier ReminderNotifier,
	loc *time.Location,
	logger *logrus.Entry,
) *ReminderService {
	return &ReminderService{
		store:    store,
		engine:   engine,
		notifier: notifier,
		loc:      loc,
		logger:   logger.WithField("component", "reminder_service"),
		now:      time.Now,
		newID:    uuid.NewString,
		armed:    make(map[uint64]armedReminder),
	}
}

// Create validates, stores and arms a new reminder for chatID.
func (s *ReminderService) Create(ctx context.Context, chatID int64, threadID *int, at time.Time, freq reminder.Frequency, text string) (reminder.Reminder, error) {
	now := s.now()
	r := reminder.Reminder{
		ID:        s.newID(),
		DateTime:  at.In(s.loc),
		Frequency: freq,
		Text:      text,
		ThreadID:  threadID,
		CreatedAt: now.In(s.loc),
	}
	if err := r.Validate(now); err != nil {
		return reminder.Reminder{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load(ctx)
	if err != nil {
		return reminder.Reminder{}, err
	}
	table[chatID] = append(table[chatID], r)
	if err := s.store.Save(ctx, table); err != nil {
		return reminder.Reminder{}, fmt.Errorf("error saving reminders: %w", err)
	}

	s.arm(chatID, r)
	s.logger.WithFields(reminderFields(chatID, r)).Info("Reminder created")
	return r, nil
}

// List returns the reminders of chatID in creation order. A non-nil threadID
// keeps only that thread's reminders.
func (s *ReminderService) List(ctx context.Context, chatID int64, threadID *int) ([]reminder.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []reminder.Reminder
	for _, r := range table[chatID] {
		if r.InThread(threadID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Remove deletes the reminder with id from chatID and cancels its trigger.
func (s *ReminderService) Remove(ctx context.Context, chatID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !dropReminder(table, chatID, id) {
		return ErrReminderNotFound
	}
	if err := s.store.Save(ctx, table); err != nil {
		return fmt.Errorf("error saving reminders: %w", err)
	}
	s.disarmByID(chatID, id)
	s.logger.WithFields(logrus.Fields{"chat_id": chatID, "reminder_id": id}).Info("Reminder removed")
	return nil
}

// ReloadAll drops reminders that can no longer fire and brings the armed
// triggers in line with the store. An unchanged reminder keeps its trigger.
func (s *ReminderService) ReloadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load(ctx)
	if err != nil {
		metrics.Reloads.WithLabelValues("reminder", "error").Inc()
		return err
	}

	now := s.now()
	pruned := 0
	for chatID, items := range table {
		kept := items[:0]
		for _, r := range items {
			if r.Expired(now) {
				pruned++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(table, chatID)
		} else {
			table[chatID] = kept
		}
	}
	if pruned > 0 {
		if err := s.store.Save(ctx, table); err != nil {
			metrics.Reloads.WithLabelValues("reminder", "error").Inc()
			return fmt.Errorf("error saving pruned reminders: %w", err)
		}
	}

	type pending struct {
		chatID int64
		r      reminder.Reminder
	}
	kept := make(map[uint64]bool, len(s.armed))
	var toArm []pending
	for chatID, items := range table {
		for _, r := range items {
			if token, ok := s.findArmed(chatID, r, kept); ok {
				kept[token] = true
				continue
			}
			toArm = append(toArm, pending{chatID: chatID, r: r})
		}
	}
	for token := range s.armed {
		if !kept[token] {
			s.disarm(token)
		}
	}
	for _, p := range toArm {
		s.arm(p.chatID, p.r)
	}

	metrics.Reloads.WithLabelValues("reminder", "ok").Inc()
	s.logger.WithFields(logrus.Fields{
		"armed":  len(s.armed),
		"added":  len(toArm),
		"pruned": pruned,
	}).Info("Reminders reloaded")
	return nil
}

func (s *ReminderService) ActiveTriggers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

func (s *ReminderService) load(ctx context.Context) (reminder.Table, error) {
	table, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading reminders: %w", err)
	}
	if table == nil {
		table = reminder.Table{}
	}
	return table, nil
}

func (s *ReminderService) arm(chatID int64, r reminder.Reminder) {
	s.nextToken++
	token := s.nextToken
	rec := reminder.Recurrence{At: r.DateTime.In(s.loc), Frequency: r.Frequency}

	tid := s.engine.Arm(rec, func() { s.fire(token, r) })
	s.armed[token] = armedReminder{chatID: chatID, id: r.ID, reminder: r, tid: tid}
	metrics.ActiveTriggers.WithLabelValues("reminder").Set(float64(len(s.armed)))
}

func (s *ReminderService) disarm(token uint64) {
	a, ok := s.armed[token]
	if !ok {
		return
	}
	s.engine.Cancel(a.tid)
	delete(s.armed, token)
	metrics.ActiveTriggers.WithLabelValues("reminder").Set(float64(len(s.armed)))
}

// findArmed returns the token of an armed trigger for an identical reminder.
func (s *ReminderService) findArmed(chatID int64, r reminder.Reminder, taken map[uint64]bool) (uint64, bool) {
	for token, a := range s.armed {
		if taken[token] || a.chatID != chatID || a.id != r.ID {
			continue
		}
		if sameReminder(a.reminder, r) {
			return token, true
		}
	}
	return 0, false
}

func sameReminder(a, b reminder.Reminder) bool {
	return a.DateTime.Equal(b.DateTime) &&
		a.Frequency == b.Frequency &&
		a.Text == b.Text &&
		schedule.SameThread(a.ThreadID, b.ThreadID)
}

func (s *ReminderService) disarmByID(chatID int64, id string) {
	for token, a := range s.armed {
		if a.chatID == chatID && a.id == id {
			s.disarm(token)
			return
		}
	}
}

func (s *ReminderService) fire(token uint64, r reminder.Reminder) {
	s.mu.Lock()
	a, ok := s.armed[token]
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logCtx := s.logger.WithFields(reminderFields(a.chatID, r))
	logCtx.Info("Reminder fired")
	if err := s.notifier.SendReminder(ctx, a.chatID, r); err != nil {
		logCtx.WithError(err).Error("Reminder was not delivered")
	}

	if r.Frequency == reminder.FrequencyOnce {
		s.retireOnce(ctx, token, a)
	}
}

// retireOnce removes a fired one-shot reminder from the store and the engine.
func (s *ReminderService) retireOnce(ctx context.Context, token uint64, a armedReminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarm(token)

	table, err := s.load(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Could not load reminders to retire a one-shot reminder")
		return
	}
	if !dropReminder(table, a.chatID, a.id) {
		return
	}
	if err := s.store.Save(ctx, table); err != nil {
		s.logger.WithError(err).Error("Could not save reminders after retiring a one-shot reminder")
	}
}

func dropReminder(table reminder.Table, chatID int64, id string) bool {
	items := table[chatID]
	for i, r := range items {
		if r.ID != id {
			continue
		}
		remaining := make([]reminder.Reminder, 0, len(items)-1)
		remaining = append(remaining, items[:i]...)
		remaining = append(remaining, items[i+1:]...)
		if len(remaining) == 0 {
			delete(table, chatID)
		} else {
			table[chatID] = remaining
		}
		return true
	}
	return false
}

func reminderFields(chatID int64, r reminder.Reminder) logrus.Fields {
	fields := logrus.Fields{
		"chat_id":     chatID,
		"reminder_id": r.ID,
		"frequency":   string(r.Frequency),
		"at":          r.DateTime.Format(time.RFC3339),
	}
	if r.ThreadID != nil {
		fields["thread_id"] = *r.ThreadID
	}
	return fields
}
