/*
Package roster maintains the set of participants considered online for a session.

Membership is derived from three sources that may arrive in any order: the bootstrap
user list, join/leave events, and inference from incoming private messages. The Roster
type enforces the set invariants itself: no duplicates, no empty names, and never the
local user's own name.
*/
package roster

import (
	"slices"

	"chatsync/internal/app/chat"
)

// Roster is an insertion-ordered set of participant names excluding the local user.
// It is not safe for concurrent use; the session event loop owns it.
type Roster struct {
	self    string
	members map[string]struct{}
	order   []string
}

// New returns an empty roster for the local user self.
func New(self string) *Roster {
	return &Roster{
		self:    self,
		members: make(map[string]struct{}),
	}
}

// add inserts name unless it is empty, the local user, or already present.
func (r *Roster) add(name string) bool {
	if name == "" || name == r.self {
		return false
	}
	if _, ok := r.members[name]; ok {
		return false
	}
	r.members[name] = struct{}{}
	r.order = append(r.order, name)
	return true
}

// ApplyBootstrap merges the registered-user list fetched at connect time.
// It adds names; it never removes members learned from live events.
func (r *Roster) ApplyBootstrap(names []string) int {
	added := 0
	for _, name := range names {
		if r.add(name) {
			added++
		}
	}
	return added
}

// ApplyJoin adds a participant announced by a join event.
func (r *Roster) ApplyJoin(name string) bool {
	return r.add(name)
}

// ApplyLeave removes a participant announced by a leave event.
func (r *Roster) ApplyLeave(name string) bool {
	if _, ok := r.members[name]; !ok {
		return false
	}
	delete(r.members, name)
	r.order = slices.DeleteFunc(r.order, func(member string) bool { return member == name })
	return true
}

// ObservePrivate adds the sender of an incoming private message, so a partner who
// writes first is listed even when no join event was seen.
func (r *Roster) ObservePrivate(msg chat.Message) bool {
	if msg.IsPublic() {
		return false
	}
	return r.add(msg.Sender)
}

// Contains reports whether name is a member.
func (r *Roster) Contains(name string) bool {
	_, ok := r.members[name]
	return ok
}

// Len returns the number of members.
func (r *Roster) Len() int {
	return len(r.order)
}

// Names returns the members in the order they were first added.
func (r *Roster) Names() []string {
	return slices.Clone(r.order)
}
