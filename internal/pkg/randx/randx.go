/*
Package randx generates identifiers for relay connections.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

// PeerIDPrefix prefixes every relay connection identifier.
const PeerIDPrefix = "peer_"

// PeerID generates a unique identifier for a websocket connection.
func PeerID() string {
	return PeerIDPrefix + uuid.NewString()
}

// IsValidPeerID checks that id carries the peer prefix followed by a UUID.
func IsValidPeerID(id string) bool {
	raw, ok := strings.CutPrefix(id, PeerIDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(raw)
	return err == nil
}
