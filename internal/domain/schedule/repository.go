package schedule

import "context"

// Store persists the whole schedule table. Save replaces everything previously stored.
type Store interface {
	Load(ctx context.Context) (Table, error)
	Save(ctx context.Context, table Table) error
}
