package relay_test

import (
	"context"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/identity"
	"chatsync/internal/app/relay"
	"chatsync/internal/app/session"
	"chatsync/internal/app/transport"
	"chatsync/internal/configs"
)

func startRelay(t *testing.T) string {
	t.Helper()

	store := relay.NewMemoryStore()
	metrics := relay.NewMetrics(prometheus.NewRegistry())
	hub := relay.NewHub(store, metrics)
	go hub.Run()

	handler, stop := relay.Router(&relay.Deps{
		Hub:     hub,
		Store:   store,
		Metrics: metrics,
		Config:  &configs.AppConfig{Environment: "development"},
	})
	srv := httptest.NewServer(handler)

	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
		stop()
	})
	return srv.URL
}

func newClient(t *testing.T, backendURL string) *session.Session {
	t.Helper()

	dialer, err := transport.NewWSDialer(backendURL)
	if err != nil {
		t.Fatalf("dialer: %v", err)
	}
	s := session.New(
		transport.NewAPIClient(backendURL, 2*time.Second),
		session.WebSocketDialer(dialer),
		identity.NewStore(identity.NewMemoryBackend()),
	)
	t.Cleanup(s.Teardown)
	return s
}

func waitView(t *testing.T, s *session.Session, what string, cond func(session.View) bool) session.View {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		v := s.View()
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last view: %+v", what, v)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func bodies(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func TestClientsConvergeThroughRelay(t *testing.T) {
	backend := startRelay(t)
	ctx := context.Background()

	alice := newClient(t, backend)
	if err := alice.Login(ctx, "alice"); err != nil {
		t.Fatalf("alice login: %v", err)
	}

	bob := newClient(t, backend)
	if err := bob.Login(ctx, "bob"); err != nil {
		t.Fatalf("bob login: %v", err)
	}

	waitView(t, alice, "bob online for alice", func(v session.View) bool {
		return slices.Contains(v.Online, "bob")
	})
	waitView(t, bob, "alice online for bob", func(v session.View) bool {
		return slices.Contains(v.Online, "alice")
	})

	if err := bob.SendMessage(ctx, "hello everyone", chat.PublicTarget); err != nil {
		t.Fatalf("bob public: %v", err)
	}
	if err := bob.SendMessage(ctx, "just for you", "alice"); err != nil {
		t.Fatalf("bob private: %v", err)
	}

	v := waitView(t, alice, "alice receives both messages", func(v session.View) bool {
		return len(v.Public) == 1 && len(v.Threads["bob"]) == 1
	})
	if v.Public[0].Sender != "bob" || v.Threads["bob"][0].Body != "just for you" {
		t.Fatalf("unexpected view: %+v", v)
	}
	if !v.HasUnread("bob") {
		t.Fatal("expected bob's thread to be unread for alice")
	}

	waitView(t, bob, "bob sees his own messages echoed", func(v session.View) bool {
		return len(v.Public) == 1 && len(v.Threads["alice"]) == 1 && !v.HasUnread("alice")
	})

	carol := newClient(t, backend)
	if err := carol.Login(ctx, "carol"); err != nil {
		t.Fatalf("carol login: %v", err)
	}

	v = waitView(t, carol, "carol bootstraps history", func(v session.View) bool {
		return len(v.Public) == 1 && slices.Contains(v.Online, "alice") && slices.Contains(v.Online, "bob")
	})
	if got := bodies(v.Public); got[0] != "hello everyone" {
		t.Fatalf("unexpected public feed for carol: %v", got)
	}
	if len(v.Threads) != 0 {
		t.Fatalf("carol must not see other users' private threads: %+v", v.Threads)
	}
}

func TestLogoutIsAnnouncedToOthers(t *testing.T) {
	backend := startRelay(t)
	ctx := context.Background()

	bob := newClient(t, backend)
	if err := bob.Login(ctx, "bob"); err != nil {
		t.Fatalf("bob login: %v", err)
	}
	alice := newClient(t, backend)
	if err := alice.Login(ctx, "alice"); err != nil {
		t.Fatalf("alice login: %v", err)
	}

	// alice learns about bob only from the registry bootstrap.
	waitView(t, alice, "bob online", func(v session.View) bool {
		return slices.Contains(v.Online, "bob")
	})

	bob.Teardown()
	if bob.State() != session.Disconnected {
		t.Fatalf("expected bob disconnected, got %s", bob.State())
	}

	waitView(t, alice, "bob offline", func(v session.View) bool {
		return !slices.Contains(v.Online, "bob")
	})
}
