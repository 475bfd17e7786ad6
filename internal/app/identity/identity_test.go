package identity

import (
	"errors"
	"slices"
	"testing"
)

type failingBackend struct {
	loadErr error
	saveErr error
}

func (f *failingBackend) Load() ([]string, error) { return nil, f.loadErr }
func (f *failingBackend) Save([]string) error     { return f.saveErr }
func (f *failingBackend) Close() error            { return nil }

func TestRememberAppendsIfAbsent(t *testing.T) {
	backend := NewMemoryBackend("alice")
	s := NewStore(backend)

	if added, err := s.Remember("alice"); added || err != nil {
		t.Fatalf("expected existing name to be skipped, got added=%v err=%v", added, err)
	}
	if added, err := s.Remember("bob"); !added || err != nil {
		t.Fatalf("expected bob to be added, got added=%v err=%v", added, err)
	}
	if got := s.Previous(); !slices.Equal(got, []string{"alice", "bob"}) {
		t.Fatalf("unexpected history: %v", got)
	}

	persisted, _ := backend.Load()
	if !slices.Equal(persisted, []string{"alice", "bob"}) {
		t.Fatalf("expected history to be persisted, got %v", persisted)
	}
}

func TestNewStoreDedupesLoadedHistory(t *testing.T) {
	s := NewStore(NewMemoryBackend("alice", "", "bob", "alice"))
	if got := s.Previous(); !slices.Equal(got, []string{"alice", "bob"}) {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestNewStoreToleratesUnreadableHistory(t *testing.T) {
	s := NewStore(&failingBackend{loadErr: errors.New("corrupt")})
	if len(s.Previous()) != 0 {
		t.Fatalf("expected empty history")
	}
}

func TestRememberKeepsNameWhenSaveFails(t *testing.T) {
	s := NewStore(&failingBackend{saveErr: errors.New("disk full")})

	added, err := s.Remember("alice")
	if !added || err == nil {
		t.Fatalf("expected added=true with error, got added=%v err=%v", added, err)
	}
	if got := s.Previous(); !slices.Equal(got, []string{"alice"}) {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestSetNameResetsConnection(t *testing.T) {
	s := NewStore(NewMemoryBackend())
	s.SetName("alice")
	s.MarkConnected()

	s.SetName("bob")
	if got := s.Current(); got.Name != "bob" || got.Connected {
		t.Fatalf("unexpected identity: %+v", got)
	}

	s.MarkConnected()
	s.Reset()
	if got := s.Current(); got.Name != "bob" || got.Connected {
		t.Fatalf("expected reset to keep name and disconnect, got %+v", got)
	}
}

func TestPebbleBackendPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	backend, err := OpenPebble(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	names, err := backend.Load()
	if err != nil || len(names) != 0 {
		t.Fatalf("expected empty history on fresh store, got %v err=%v", names, err)
	}

	s := NewStore(backend)
	if _, err := s.Remember("alice"); err != nil {
		t.Fatalf("remember alice: %v", err)
	}
	if _, err := s.Remember("bob"); err != nil {
		t.Fatalf("remember bob: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenPebble(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got := NewStore(reopened).Previous(); !slices.Equal(got, []string{"alice", "bob"}) {
		t.Fatalf("unexpected history after reopen: %v", got)
	}
}
