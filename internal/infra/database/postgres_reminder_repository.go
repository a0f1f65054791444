package database

import (
	"context"
	"database/sql"
	"fmt"

	"meet_link_bot/internal/domain/reminder"
)

var reminderColumns = []string{"id", "chat_id", "position", "fire_at", "frequency", "body", "thread_id", "created_at"}

// PostgresReminderRepository implements reminder.Store on the chat_reminders table.
type PostgresReminderRepository struct {
	db *sql.DB
}

func NewPostgresReminderRepository(db *sql.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

func (r *PostgresReminderRepository) Load(ctx context.Context) (reminder.Table, error) {
	query := `SELECT id, chat_id, fire_at, frequency, body, thread_id, created_at
               FROM chat_reminders ORDER BY chat_id, position`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying reminders: %w", err)
	}
	defer rows.Close()

	table := make(reminder.Table)
	for rows.Next() {
		var (
			chatID int64
			rem    reminder.Reminder
			freq   string
			thread sql.NullInt64
		)
		if err := rows.Scan(&rem.ID, &chatID, &rem.DateTime, &freq, &rem.Text, &thread, &rem.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning reminder row: %w", err)
		}
		rem.Frequency = reminder.Frequency(freq)
		rem.ThreadID = threadFromNull(thread)
		table[chatID] = append(table[chatID], rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder rows: %w", err)
	}
	return table, nil
}

// Save replaces the stored table with t.
func (r *PostgresReminderRepository) Save(ctx context.Context, t reminder.Table) error {
	var rows [][]interface{}
	for _, chatID := range sortedChats(t) {
		for pos, rem := range t[chatID] {
			rows = append(rows, []interface{}{
				rem.ID, chatID, pos, rem.DateTime, string(rem.Frequency), rem.Text, nullableThread(rem.ThreadID), rem.CreatedAt,
			})
		}
	}
	if err := replaceRows(ctx, r.db, "chat_reminders", reminderColumns, rows); err != nil {
		return fmt.Errorf("error saving reminders: %w", err)
	}
	return nil
}
