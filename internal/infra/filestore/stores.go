package filestore

import (
	"context"

	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// ScheduleStore implements schedule.Store on top of a JSON file.
type ScheduleStore struct {
	file *jsonFile[schedule.Entry]
}

func NewScheduleStore(path string, logger *logrus.Entry) *ScheduleStore {
	return &ScheduleStore{file: newJSONFile[schedule.Entry](path, logger.WithField("store", "schedules"))}
}

func (s *ScheduleStore) Load(ctx context.Context) (schedule.Table, error) {
	m, err := s.file.load()
	if err != nil {
		return nil, err
	}
	return schedule.Table(m), nil
}

func (s *ScheduleStore) Save(ctx context.Context, table schedule.Table) error {
	return s.file.save(table)
}

// ReminderStore implements reminder.Store on top of a JSON file.
type ReminderStore struct {
	file *jsonFile[reminder.Reminder]
}

func NewReminderStore(path string, logger *logrus.Entry) *ReminderStore {
	return &ReminderStore{file: newJSONFile[reminder.Reminder](path, logger.WithField("store", "reminders"))}
}

func (s *ReminderStore) Load(ctx context.Context) (reminder.Table, error) {
	m, err := s.file.load()
	if err != nil {
		return nil, err
	}
	return reminder.Table(m), nil
}

func (s *ReminderStore) Save(ctx context.Context, table reminder.Table) error {
	return s.file.save(table)
}
