package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatsync/internal/app/chat"
	"chatsync/internal/pkg/errs"
)

func TestRegisterPostsUsername(t *testing.T) {
	var got UserRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/users" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL+"/", time.Second)
	if err := client.Register(context.Background(), "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("server saw %+v", got)
	}
}

func TestRegisterNonSuccessIsRegistrationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "taken", http.StatusConflict)
	}))
	defer srv.Close()

	err := NewAPIClient(srv.URL, time.Second).Register(context.Background(), "alice")
	if !errs.Is(err, errs.ErrRegistration) {
		t.Fatalf("expected registration error, got %v", err)
	}
}

func TestRegisterUnreachableIsRegistrationError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewAPIClient(url, time.Second).Register(context.Background(), "alice")
	if !errs.Is(err, errs.ErrRegistration) {
		t.Fatalf("expected registration error, got %v", err)
	}
}

func TestFetchUsersAndMessages(t *testing.T) {
	history := []chat.Message{
		{Sender: "bob", Body: "hello", Status: chat.StatusSent, Timestamp: "2024-05-01T12:00:00.000Z"},
		{Sender: "bob", Recipient: "alice", Body: "psst", Status: chat.StatusSent, Timestamp: "2024-05-01T12:00:01.000Z"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]UserRecord{{Username: "alice"}, {Username: "bob"}})
	})
	mux.HandleFunc("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(history)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewAPIClient(srv.URL, time.Second)

	users, err := client.FetchUsers(context.Background())
	if err != nil {
		t.Fatalf("fetch users: %v", err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Fatalf("unexpected users: %v", users)
	}

	got, err := client.FetchMessages(context.Background())
	if err != nil {
		t.Fatalf("fetch messages: %v", err)
	}
	if len(got) != 2 || got[0] != history[0] || got[1] != history[1] {
		t.Fatalf("unexpected history: %+v", got)
	}
}

func TestFetchFailureIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, time.Second)

	if _, err := client.FetchUsers(context.Background()); !errs.Is(err, errs.ErrFetch) {
		t.Fatalf("expected fetch error for users, got %v", err)
	}
	if _, err := client.FetchMessages(context.Background()); !errs.Is(err, errs.ErrFetch) {
		t.Fatalf("expected fetch error for messages, got %v", err)
	}
}
