package session

import (
	"slices"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/identity"
)

// View is an immutable snapshot of everything a renderer needs.
type View struct {
	State              State
	Identity           identity.Identity
	PreviousIdentities []string
	Online             []string
	Public             []chat.Message
	Threads            map[string][]chat.Message
	Selected           string
	Unread             []string
	Draft              string
	LinkUp             bool
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		State:              s.state,
		Identity:           s.identities.Current(),
		PreviousIdentities: s.identities.Previous(),
		Selected:           chat.PublicTarget,
		Draft:              s.draft,
		LinkUp:             s.linkUp,
		Threads:            map[string][]chat.Message{},
	}

	if s.roster != nil {
		v.Online = s.roster.Names()
	}
	if s.ledger != nil {
		v.Public = s.ledger.Public()
		v.Threads = s.ledger.Threads()
		v.Selected = s.ledger.Selected()
		v.Unread = s.ledger.Unread()
	}
	return v
}

// Messages returns the messages of the selected thread.
func (v View) Messages() []chat.Message {
	if v.Selected == chat.PublicTarget {
		return v.Public
	}
	return v.Threads[v.Selected]
}

// HasUnread reports whether the thread with partner is flagged unread.
func (v View) HasUnread(partner string) bool {
	return slices.Contains(v.Unread, partner)
}
