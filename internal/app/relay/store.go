/*
Package relay is a reference implementation of the chat backend the client talks to.

It serves the user registry and message history over HTTP, and relays join,
leave, public and private message events between websocket peers through a
single hub loop. Messages are recorded in a Store: in memory by default, or in
PostgreSQL when a DSN is configured.
*/
package relay

import (
	"context"
	"slices"
	"sync"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/transport"
)

// Store persists registered users and relayed messages.
type Store interface {
	RegisterUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]transport.UserRecord, error)
	AppendMessage(ctx context.Context, msg chat.Message) error
	ListMessages(ctx context.Context) ([]chat.Message, error)
	Close()
}

// MemoryStore keeps users and messages in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []string
	messages []chat.Message
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// RegisterUser records username. Registering an existing name succeeds without a duplicate.
func (m *MemoryStore) RegisterUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.users, username) {
		m.users = append(m.users, username)
	}
	return nil
}

// ListUsers returns the registered users in registration order.
func (m *MemoryStore) ListUsers(context.Context) ([]transport.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]transport.UserRecord, 0, len(m.users))
	for _, name := range m.users {
		out = append(out, transport.UserRecord{Username: name})
	}
	return out, nil
}

// AppendMessage records msg at the end of the history.
func (m *MemoryStore) AppendMessage(_ context.Context, msg chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// ListMessages returns the full history in the order it was recorded.
func (m *MemoryStore) ListMessages(context.Context) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]chat.Message{}, m.messages...), nil
}

func (m *MemoryStore) Close() {}
