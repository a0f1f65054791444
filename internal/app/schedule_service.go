package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meet_link_bot/internal/domain/schedule"
	"meet_link_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

var ErrDuplicateEntry = fmt.Errorf("schedule entry already exists")
var ErrEntryNotFound = fmt.Errorf("schedule entry not found")

// LinkPoster delivers the link for a fired schedule entry.
type LinkPoster interface {
	PostScheduledLink(ctx context.Context, chatID int64, entry schedule.Entry) error
}

type armedEntry struct {
	chatID int64
	entry  schedule.Entry
	id     TriggerID
}

// ScheduleService owns the weekly schedule table and keeps one armed trigger
// per stored entry. All store access and trigger bookkeeping happens under mu.
type ScheduleService struct {
	mu     sync.Mutex
	store  schedule.Store
	engine TriggerEngine
	poster LinkPoster
	loc    *time.Location
	lead   time.Duration
	logger *logrus.Entry
	now    func() time.Time

	// armed is keyed by a token that a fired job must still find here to run.
	armed     map[uint64]armedEntry
	nextToken uint64
}

func NewScheduleService(
	store schedule.Store,
	engine TriggerEngine,
	poster LinkPoster,
	loc *time.Location,
	lead time.Duration,
	logger *logrus.Entry,
) *ScheduleService {
	return &ScheduleService{
		store:  store,
		engine: engine,
		poster: poster,
		loc:    loc,
		lead:   lead,
		logger: logger.WithField("component", "schedule_service"),
		now:    time.Now,
		armed:  make(map[uint64]armedEntry),
	}
}

// Add stores a new entry for chatID and arms its trigger.
func (s *ScheduleService) Add(ctx context.Context, chatID int64, entry schedule.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range table[chatID] {
		if existing.SameSlot(entry) {
			return ErrDuplicateEntry
		}
	}

	table[chatID] = append(table[chatID], entry)
	if err := s.store.Save(ctx, table); err != nil {
		return fmt.Errorf("error saving schedules: %w", err)
	}

	s.arm(chatID, entry)
	s.logger.WithFields(entryFields(chatID, entry)).Info("Schedule entry added")
	return nil
}

// Remove deletes the first entry of chatID matching the slot and thread of
// target, and cancels its trigger.
func (s *ScheduleService) Remove(ctx context.Context, chatID int64, target schedule.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load(ctx)
	if err != nil {
		return err
	}

	entries := table[chatID]
	idx := -1
	for i, e := range entries {
		if e.SameSlot(target) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrEntryNotFound
	}

	remaining := make([]schedule.Entry, 0, len(entries)-1)
	remaining = append(remaining, entries[:idx]...)
	remaining = append(remaining, entries[idx+1:]...)
	if len(remaining) == 0 {
		delete(table, chatID)
	} else {
		table[chatID] = remaining
	}
	if err := s.store.Save(ctx, table); err != nil {
		return fmt.Errorf("error saving schedules: %w", err)
	}

	for token, a := range s.armed {
		if a.chatID == chatID && a.entry.SameSlot(target) {
			s.disarm(token)
			break
		}
	}
	s.logger.WithFields(entryFields(chatID, target)).Info("Schedule entry removed")
	return nil
}

// List returns the entries of chatID. A non-nil threadID keeps only that thread's entries.
func (s *ScheduleService) List(ctx context.Context, chatID int64, threadID *int) ([]schedule.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []schedule.Entry
	for _, e := range table[chatID] {
		if e.InThread(threadID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ReloadAll brings the armed triggers in line with the store. Entries that
// are already armed keep their trigger, so a reload landing on a slot's tick
// cannot swallow that week's link. When the store cannot be read the current
// triggers stay in place.
func (s *ScheduleService) ReloadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load(ctx)
	if err != nil {
		metrics.Reloads.WithLabelValues("schedule", "error").Inc()
		return err
	}

	type pending struct {
		chatID int64
		entry  schedule.Entry
	}
	kept := make(map[uint64]bool, len(s.armed))
	var toArm []pending
	skipped := 0
	for chatID, entries := range table {
		for _, e := range entries {
			if err := e.Validate(); err != nil {
				s.logger.WithFields(entryFields(chatID, e)).WithError(err).Warn("Skipping invalid stored entry")
				skipped++
				continue
			}
			if token, ok := s.findArmed(chatID, e, kept); ok {
				kept[token] = true
				continue
			}
			toArm = append(toArm, pending{chatID: chatID, entry: e})
		}
	}

	cancelled := 0
	for token := range s.armed {
		if !kept[token] {
			s.disarm(token)
			cancelled++
		}
	}
	for _, p := range toArm {
		s.arm(p.chatID, p.entry)
	}

	metrics.Reloads.WithLabelValues("schedule", "ok").Inc()
	s.logger.WithFields(logrus.Fields{
		"chats":     len(table),
		"armed":     len(s.armed),
		"added":     len(toArm),
		"cancelled": cancelled,
		"skipped":   skipped,
	}).Info("Schedules reloaded")
	return nil
}

// findArmed returns an armed token for the slot that is not in taken.
// It must be called with mu held.
func (s *ScheduleService) findArmed(chatID int64, e schedule.Entry, taken map[uint64]bool) (uint64, bool) {
	for token, a := range s.armed {
		if !taken[token] && a.chatID == chatID && a.entry.SameSlot(e) {
			return token, true
		}
	}
	return 0, false
}

// ActiveTriggers reports how many entries are currently armed.
func (s *ScheduleService) ActiveTriggers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

func (s *ScheduleService) load(ctx context.Context) (schedule.Table, error) {
	table, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading schedules: %w", err)
	}
	if table == nil {
		table = schedule.Table{}
	}
	return table, nil
}

// arm must be called with mu held.
func (s *ScheduleService) arm(chatID int64, entry schedule.Entry) {
	s.nextToken++
	token := s.nextToken
	rec := schedule.Weekly{Entry: entry, Location: s.loc, Lead: s.lead}

	id := s.engine.Arm(rec, func() { s.fire(token) })
	s.armed[token] = armedEntry{chatID: chatID, entry: entry, id: id}
	metrics.ActiveTriggers.WithLabelValues("schedule").Set(float64(len(s.armed)))

	s.logger.WithFields(entryFields(chatID, entry)).
		WithField("next_run", rec.Next(s.now()).In(s.loc).Format(time.RFC3339)).
		Debug("Trigger armed")
}

// disarm must be called with mu held.
func (s *ScheduleService) disarm(token uint64) {
	a, ok := s.armed[token]
	if !ok {
		return
	}
	s.engine.Cancel(a.id)
	delete(s.armed, token)
	metrics.ActiveTriggers.WithLabelValues("schedule").Set(float64(len(s.armed)))
}

func (s *ScheduleService) fire(token uint64) {
	s.mu.Lock()
	a, ok := s.armed[token]
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logCtx := s.logger.WithFields(entryFields(a.chatID, a.entry))
	logCtx.Info("Schedule trigger fired")
	if err := s.poster.PostScheduledLink(ctx, a.chatID, a.entry); err != nil {
		logCtx.WithError(err).Error("Scheduled link was not delivered")
	}
}

func entryFields(chatID int64, e schedule.Entry) logrus.Fields {
	fields := logrus.Fields{
		"chat_id": chatID,
		"day":     schedule.DayName(e.Day),
		"time":    schedule.FormatClock(e.Hour, e.Minute),
	}
	if e.ThreadID != nil {
		fields["thread_id"] = *e.ThreadID
	}
	return fields
}
