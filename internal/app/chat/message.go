/*
Package chat defines the chat message model shared by the client session engine,
the transport adapter and the relay server.

A message with an empty Recipient is public. Messages carry no server-assigned id,
so equality for deduplication is the structural tuple returned by Key.
*/
package chat

import (
	"strings"
	"time"
)

// PublicTarget is the thread name that addresses the public feed.
const PublicTarget = "public"

// TimestampLayout is the ISO-8601 layout used on the wire (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Status is the delivery status of a message.
type Status string

const (
	// StatusSent marks a message emitted by its sender.
	StatusSent Status = "SENT"
)

// Message is a single chat message. Field names follow the realtime wire format.
type Message struct {
	Sender    string `json:"senderName"`
	Recipient string `json:"receiverName,omitempty"`
	Body      string `json:"message"`
	Status    Status `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Key identifies a message for deduplication.
type Key struct {
	Sender    string
	Recipient string
	Body      string
	Timestamp string
}

// NewPublic builds a public message sent at now.
func NewPublic(sender, body string, now time.Time) Message {
	return Message{
		Sender:    sender,
		Body:      body,
		Status:    StatusSent,
		Timestamp: FormatTimestamp(now),
	}
}

// NewPrivate builds a private message from sender to recipient sent at now.
func NewPrivate(sender, recipient, body string, now time.Time) Message {
	msg := NewPublic(sender, body, now)
	msg.Recipient = recipient
	return msg
}

// FormatTimestamp renders t in the wire timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// IsPublic reports whether the message belongs to the public feed.
func (m Message) IsPublic() bool {
	return m.Recipient == ""
}

// Key returns the structural identity of the message.
func (m Message) Key() Key {
	return Key{Sender: m.Sender, Recipient: m.Recipient, Body: m.Body, Timestamp: m.Timestamp}
}

// Involves reports whether self is the sender or the recipient.
func (m Message) Involves(self string) bool {
	return m.Sender == self || m.Recipient == self
}

// Partner returns the participant of a private message who is not self.
func (m Message) Partner(self string) string {
	if m.Sender == self {
		return m.Recipient
	}
	return m.Sender
}

// Time parses the message timestamp. The zero time is returned when it cannot be parsed.
func (m Message) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NormalizeName trims surrounding whitespace from a participant name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
