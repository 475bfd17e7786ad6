package chat

import (
	"testing"
	"time"
)

func TestNewPrivateFillsWireFields(t *testing.T) {
	now := time.Date(2024, 3, 9, 18, 4, 5, 123_000_000, time.FixedZone("CET", 3600))

	msg := NewPrivate("alice", "bob", "hi", now)
	if msg.IsPublic() {
		t.Fatalf("expected private message")
	}
	if msg.Status != StatusSent {
		t.Fatalf("unexpected status: %q", msg.Status)
	}
	if msg.Timestamp != "2024-03-09T17:04:05.123Z" {
		t.Fatalf("unexpected timestamp: %q", msg.Timestamp)
	}
	if !msg.Time().Equal(now) {
		t.Fatalf("expected timestamp to round trip, got %s", msg.Time())
	}
}

func TestPartnerIsTheOtherParty(t *testing.T) {
	outbound := Message{Sender: "alice", Recipient: "bob"}
	inbound := Message{Sender: "bob", Recipient: "alice"}

	if got := outbound.Partner("alice"); got != "bob" {
		t.Fatalf("outbound partner: got %q", got)
	}
	if got := inbound.Partner("alice"); got != "bob" {
		t.Fatalf("inbound partner: got %q", got)
	}
	if !inbound.Involves("alice") || inbound.Involves("carol") {
		t.Fatalf("unexpected Involves result")
	}
}

func TestKeyIgnoresStatus(t *testing.T) {
	a := Message{Sender: "a", Body: "x", Timestamp: "t", Status: StatusSent}
	b := Message{Sender: "a", Body: "x", Timestamp: "t"}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys")
	}
	b.Recipient = "c"
	if a.Key() == b.Key() {
		t.Fatalf("expected recipient to distinguish keys")
	}
}

func TestTimeOfMalformedTimestampIsZero(t *testing.T) {
	if !(Message{Timestamp: "yesterday"}).Time().IsZero() {
		t.Fatalf("expected zero time")
	}
}
