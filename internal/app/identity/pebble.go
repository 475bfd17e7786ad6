package identity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend persists the history as a JSON array under HistoryKey in a pebble database.
type PebbleBackend struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the pebble database in dir.
func OpenPebble(dir string) (*PebbleBackend, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open identity store at %s: %w", dir, err)
	}
	return &PebbleBackend{db: db}, nil
}

// Load reads the history record. A missing record yields an empty history.
func (p *PebbleBackend) Load() ([]string, error) {
	value, closer, err := p.db.Get([]byte(HistoryKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", HistoryKey, err)
	}
	defer closer.Close()

	var names []string
	if err := json.Unmarshal(value, &names); err != nil {
		return nil, fmt.Errorf("invalid %s record: %w", HistoryKey, err)
	}
	return names, nil
}

// Save overwrites the history record and syncs it to disk.
func (p *PebbleBackend) Save(names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", HistoryKey, err)
	}
	if err := p.db.Set([]byte(HistoryKey), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write %s: %w", HistoryKey, err)
	}
	return nil
}

// Close closes the database.
func (p *PebbleBackend) Close() error {
	return p.db.Close()
}
