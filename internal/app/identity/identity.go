/*
Package identity holds the local user's identity for a client session and the
history of names previously used on this machine.

The Store is a plain value holder: name validation happens at the session
boundary. Previous identities are an append-if-absent list persisted through a
Backend under a single key.
*/
package identity

import (
	"slices"

	"github.com/rs/zerolog"

	"chatsync/internal/pkg/logx"
)

// HistoryKey is the key of the persisted record holding previous identities.
const HistoryKey = "chatAppPreviousUsers"

// Identity is the local user of a session.
type Identity struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// Backend persists the ordered list of previous identities.
type Backend interface {
	Load() ([]string, error)
	Save(names []string) error
	Close() error
}

// Store tracks the current identity and the previous-identity history.
// It is not safe for concurrent use; the session controller serialises access.
type Store struct {
	current  Identity
	previous []string
	backend  Backend
	logger   zerolog.Logger
}

// NewStore loads the previous-identity history from backend. A history that cannot
// be read is logged and treated as empty so the client still starts.
func NewStore(backend Backend) *Store {
	s := &Store{
		backend: backend,
		logger:  logx.Component("identity"),
	}

	names, err := backend.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load previous identities. Starting with an empty history.")
		return s
	}
	s.previous = dedupe(names)

	s.logger.Debug().Int("count", len(s.previous)).Msg("Previous identities loaded.")
	return s
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Current returns the current identity.
func (s *Store) Current() Identity {
	return s.current
}

// SetName replaces the current name and marks the identity disconnected.
func (s *Store) SetName(name string) {
	s.current = Identity{Name: name}
}

// MarkConnected flips the identity to connected.
func (s *Store) MarkConnected() {
	s.current.Connected = true
}

// Reset marks the identity disconnected, keeping its name for the next login attempt.
func (s *Store) Reset() {
	s.current.Connected = false
}

// Previous returns the previously used names in the order they were first used.
func (s *Store) Previous() []string {
	return slices.Clone(s.previous)
}

// Remember appends name to the history if absent and persists the history.
// It reports whether the name was new. The in-memory history is updated even when
// persisting fails.
func (s *Store) Remember(name string) (bool, error) {
	if name == "" || slices.Contains(s.previous, name) {
		return false, nil
	}
	s.previous = append(s.previous, name)

	if err := s.backend.Save(slices.Clone(s.previous)); err != nil {
		return true, err
	}
	return true, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// MemoryBackend keeps the history in process memory.
type MemoryBackend struct {
	names []string
}

// NewMemoryBackend returns a backend seeded with names.
func NewMemoryBackend(names ...string) *MemoryBackend {
	return &MemoryBackend{names: slices.Clone(names)}
}

func (m *MemoryBackend) Load() ([]string, error) { return slices.Clone(m.names), nil }

func (m *MemoryBackend) Save(names []string) error {
	m.names = slices.Clone(names)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
