package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"meet_link_bot/internal/domain/schedule"
)

var scheduleColumns = []string{"chat_id", "position", "day", "hours", "minutes", "thread_id"}

// PostgresScheduleRepository implements schedule.Store on the chat_schedules table.
type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Load(ctx context.Context) (schedule.Table, error) {
	query := `SELECT chat_id, day, hours, minutes, thread_id
               FROM chat_schedules ORDER BY chat_id, position`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying schedules: %w", err)
	}
	defer rows.Close()

	table := make(schedule.Table)
	for rows.Next() {
		var (
			chatID int64
			e      schedule.Entry
			thread sql.NullInt64
		)
		if err := rows.Scan(&chatID, &e.Day, &e.Hour, &e.Minute, &thread); err != nil {
			return nil, fmt.Errorf("error scanning schedule row: %w", err)
		}
		e.ThreadID = threadFromNull(thread)
		table[chatID] = append(table[chatID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule rows: %w", err)
	}
	return table, nil
}

// Save replaces the stored table with t.
func (r *PostgresScheduleRepository) Save(ctx context.Context, t schedule.Table) error {
	var rows [][]interface{}
	for _, chatID := range sortedChats(t) {
		for pos, e := range t[chatID] {
			rows = append(rows, []interface{}{chatID, pos, e.Day, e.Hour, e.Minute, nullableThread(e.ThreadID)})
		}
	}
	if err := replaceRows(ctx, r.db, "chat_schedules", scheduleColumns, rows); err != nil {
		return fmt.Errorf("error saving schedules: %w", err)
	}
	return nil
}

func sortedChats[V any](t map[int64][]V) []int64 {
	ids := make([]int64, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
