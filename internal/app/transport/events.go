/*
Package transport is the client's only ingress and egress point: one realtime
websocket connection carrying typed JSON events, and one HTTP client for the
registration and bootstrap endpoints.

Inbound events are fanned out to subscribers over channels; a subscription is
detached explicitly with Unsubscribe.
*/
package transport

import (
	"encoding/json"
	"fmt"

	"chatsync/internal/app/chat"
)

// EventType is the name of a realtime channel event.
type EventType string

const (
	// EventJoin is emitted by a client after it registered, announcing its name.
	EventJoin EventType = "join"

	// EventUserJoined announces a participant that joined.
	EventUserJoined EventType = "userJoined"

	// EventUserLeft announces a participant that left.
	EventUserLeft EventType = "userLeft"

	// EventMessage carries a public message.
	EventMessage EventType = "message"

	// EventPrivateMessage carries a private message.
	EventPrivateMessage EventType = "privateMessage"

	// EventDisconnected is synthesised locally when the connection drops. It never crosses the wire.
	EventDisconnected EventType = "disconnected"
)

// Envelope is the JSON frame exchanged on the realtime channel.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresencePayload is the payload of join, userJoined and userLeft events.
type PresencePayload struct {
	SenderName string `json:"senderName"`
}

// Event is a decoded inbound event. Presence is set for presence events and
// Message for message events.
type Event struct {
	Type     EventType
	Presence PresencePayload
	Message  chat.Message
	Err      error
}

// Encode builds the wire frame for an event.
func Encode(eventType EventType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// Decode parses a wire frame into an Event. A public message event never carries a
// recipient, whatever the sender put in the payload.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("invalid event frame: %w", err)
	}

	ev := Event{Type: env.Type}
	if len(env.Payload) == 0 {
		return ev, nil
	}

	switch env.Type {
	case EventJoin, EventUserJoined, EventUserLeft:
		if err := json.Unmarshal(env.Payload, &ev.Presence); err != nil {
			return Event{}, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
	case EventMessage, EventPrivateMessage:
		if err := json.Unmarshal(env.Payload, &ev.Message); err != nil {
			return Event{}, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		if env.Type == EventMessage {
			ev.Message.Recipient = ""
		}
	default:
		return Event{}, fmt.Errorf("unsupported event type %q", env.Type)
	}
	return ev, nil
}
