package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// jsonFile keeps a chat-keyed table in one JSON document:
// {"<chat id>": [item, ...], ...}.
type jsonFile[T any] struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Entry
	now    func() time.Time
}

func newJSONFile[T any](path string, logger *logrus.Entry) *jsonFile[T] {
	return &jsonFile[T]{
		path:   path,
		logger: logger.WithField("file", path),
		now:    time.Now,
	}
}

// load returns an empty table when the file is missing. An unreadable document
// is moved aside to <path>.corrupt-<unix> and also yields an empty table.
func (f *jsonFile[T]) load() (map[int64][]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[int64][]T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return map[int64][]T{}, nil
	}

	var raw map[string][]T
	if err := json.Unmarshal(data, &raw); err != nil {
		f.quarantine(err)
		return map[int64][]T{}, nil
	}

	out := make(map[int64][]T, len(raw))
	for key, items := range raw {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			f.logger.WithField("key", key).Warn("Skipping entry with non-numeric chat id")
			continue
		}
		out[chatID] = items
	}
	return out, nil
}

func (f *jsonFile[T]) quarantine(cause error) {
	backup := fmt.Sprintf("%s.corrupt-%d", f.path, f.now().Unix())
	logCtx := f.logger.WithError(cause).WithField("backup", backup)
	if err := os.Rename(f.path, backup); err != nil {
		logCtx.WithField("rename_error", err.Error()).Error("Store file is corrupt and could not be moved aside, starting empty")
		return
	}
	logCtx.Error("Store file is corrupt, moved aside and starting empty")
}

// save writes the table to a temp file in the same directory and renames it
// over the target, so readers never observe a partial document.
func (f *jsonFile[T]) save(table map[int64][]T) error {
	raw := make(map[string][]T, len(table))
	for chatID, items := range table {
		if len(items) == 0 {
			continue
		}
		raw[strconv.FormatInt(chatID, 10)] = items
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", f.path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directory for %s: %w", f.path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file for %s: %w", f.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("error syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("error replacing %s: %w", f.path, err)
	}
	return nil
}
