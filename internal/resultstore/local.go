package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"idxval/internal/engine"
)

// LocalStore keeps validation results as one JSON document per file under a
// directory. It is the on-disk fallback used when the primary store is
// unreachable; it never serves config overrides.
type LocalStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewLocalStore creates the directory if needed and returns the store.
func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir %s: %w", dir, err)
	}
	return &LocalStore{
		dir:    dir,
		logger: logger.With(slog.String("component", "local_result_store")),
	}, nil
}

// Save writes the result to its own file. File names sort chronologically so
// listing can rely on name order.
func (s *LocalStore) Save(_ context.Context, res *engine.Result) error {
	stored, err := newStored(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode stored record: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", stored.CreatedAt.UTC().Format("20060102T150405"), stored.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(filepath.Join(s.dir, name), raw, 0o644); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}

// List reads all stored files, newest first.
func (s *LocalStore) List(_ context.Context, table string, limit int) ([]Stored, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var out []Stored
	for _, name := range names {
		if len(out) >= limit {
			break
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable result file",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		var st Stored
		if err := json.Unmarshal(raw, &st); err != nil {
			s.logger.Warn("skipping corrupt result file",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		if table != "" && st.TableName != table {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// ValidationConfig never has overrides locally.
func (s *LocalStore) ValidationConfig(context.Context, string) (*engine.Config, error) {
	return nil, nil
}
