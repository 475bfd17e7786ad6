package randx

import "testing"

func TestPeerIDIsUniqueAndValid(t *testing.T) {
	a, b := PeerID(), PeerID()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if !IsValidPeerID(a) {
		t.Fatalf("expected %q to be valid", a)
	}
}

func TestIsValidPeerIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "peer_", "peer_not-a-uuid", "guest_0f8fad5b-d9cb-469f-a165-70867728950e"} {
		if IsValidPeerID(id) {
			t.Fatalf("expected %q to be invalid", id)
		}
	}
}
