package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Snapshot is the durable form of the ledger state.
type Snapshot struct {
	CostHistory  []CostEntry            `json:"cost_history"`
	DailyBudgets map[string]DailyBudget `json:"daily_budgets"`
	LastUpdated  time.Time              `json:"last_updated"`
}

// Store persists ledger state.
type Store interface {
	// Load returns the last saved snapshot. A store with no prior state
	// returns an empty snapshot and no error.
	Load() (Snapshot, error)

	// Save replaces the stored snapshot.
	Save(Snapshot) error
}

// Appender is an optional Store extension for append-only persistence.
// When a store implements it, the ledger appends each entry instead of
// rewriting the full snapshot on every record.
type Appender interface {
	Append(entry CostEntry, day DailyBudget) error
}

// NoopStore keeps nothing.
type NoopStore struct{}

var _ Store = (*NoopStore)(nil)

func (s *NoopStore) Load() (Snapshot, error) { return Snapshot{}, nil }
func (s *NoopStore) Save(Snapshot) error     { return nil }

// FileStore persists the ledger as a single JSON document.
type FileStore struct {
	Path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the snapshot. A missing file yields an empty snapshot; a
// malformed one yields an error so the ledger can warn and start fresh.
func (s *FileStore) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("ledger: read %s: %w", s.Path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("ledger: parse %s: %w", s.Path, err)
	}
	return snap, nil
}

// Save writes the snapshot.
func (s *FileStore) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("ledger: write %s: %w", s.Path, err)
	}
	return nil
}
