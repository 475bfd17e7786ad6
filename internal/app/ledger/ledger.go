/*
Package ledger maintains the public feed and the private-thread map of a session.

Every feed and thread is held as two segments: the bootstrap segment, replaced
wholesale each time a history fetch is applied, followed by the live segment, which
grows in arrival order as push events are applied. Messages are deduplicated by their
structural key across both segments, so the final content does not depend on whether
the history fetch or a live event was applied first. No timestamp sorting is done.
*/
package ledger

import (
	"slices"
	"sort"

	"chatsync/internal/app/chat"
)

// feed is one ordered message sequence split into bootstrap and live segments.
type feed struct {
	boot     []chat.Message
	live     []chat.Message
	bootKeys map[chat.Key]struct{}
	liveKeys map[chat.Key]struct{}
}

func newFeed() *feed {
	return &feed{
		bootKeys: make(map[chat.Key]struct{}),
		liveKeys: make(map[chat.Key]struct{}),
	}
}

func (f *feed) contains(key chat.Key) bool {
	if _, ok := f.bootKeys[key]; ok {
		return true
	}
	_, ok := f.liveKeys[key]
	return ok
}

// replaceBoot installs a new bootstrap segment and drops live entries it already covers.
// It returns the messages that were not present in the feed before.
func (f *feed) replaceBoot(msgs []chat.Message) []chat.Message {
	var fresh []chat.Message
	boot := make([]chat.Message, 0, len(msgs))
	bootKeys := make(map[chat.Key]struct{}, len(msgs))
	for _, msg := range msgs {
		key := msg.Key()
		if _, dup := bootKeys[key]; dup {
			continue
		}
		if !f.contains(key) {
			fresh = append(fresh, msg)
		}
		bootKeys[key] = struct{}{}
		boot = append(boot, msg)
	}

	f.boot = boot
	f.bootKeys = bootKeys

	f.live = slices.DeleteFunc(f.live, func(msg chat.Message) bool {
		key := msg.Key()
		if _, ok := bootKeys[key]; ok {
			delete(f.liveKeys, key)
			return true
		}
		return false
	})

	return fresh
}

func (f *feed) append(msg chat.Message) bool {
	key := msg.Key()
	if f.contains(key) {
		return false
	}
	f.live = append(f.live, msg)
	f.liveKeys[key] = struct{}{}
	return true
}

func (f *feed) messages() []chat.Message {
	out := make([]chat.Message, 0, len(f.boot)+len(f.live))
	out = append(out, f.boot...)
	return append(out, f.live...)
}

func (f *feed) len() int {
	return len(f.boot) + len(f.live)
}

// Ledger holds the public feed and the private threads of the local user self.
// It is not safe for concurrent use; the session event loop owns it.
type Ledger struct {
	self     string
	public   *feed
	threads  map[string]*feed
	selected string
	unread   map[string]bool
}

// New returns an empty ledger for self with the public feed selected.
func New(self string) *Ledger {
	return &Ledger{
		self:     self,
		public:   newFeed(),
		threads:  make(map[string]*feed),
		selected: chat.PublicTarget,
		unread:   make(map[string]bool),
	}
}

func (l *Ledger) thread(partner string) *feed {
	f, ok := l.threads[partner]
	if !ok {
		f = newFeed()
		l.threads[partner] = f
	}
	return f
}

// ApplyBootstrap merges the full message history fetched at connect time.
// Public messages replace the feed's bootstrap segment; private messages involving
// the local user are bucketed by partner, in server order, and replace each thread's
// bootstrap segment. Private messages between two other users, and messages a user
// addressed to themself, are dropped.
func (l *Ledger) ApplyBootstrap(history []chat.Message) {
	var public []chat.Message
	buckets := make(map[string][]chat.Message)

	for _, msg := range history {
		if msg.IsPublic() {
			public = append(public, msg)
			continue
		}
		if !msg.Involves(l.self) || msg.Sender == msg.Recipient {
			continue
		}
		partner := msg.Partner(l.self)
		buckets[partner] = append(buckets[partner], msg)
	}

	l.public.replaceBoot(public)

	for partner := range l.threads {
		if _, ok := buckets[partner]; !ok {
			l.threads[partner].replaceBoot(nil)
		}
	}
	for partner, msgs := range buckets {
		for _, msg := range l.thread(partner).replaceBoot(msgs) {
			l.markUnread(partner, msg)
		}
	}
}

// ApplyPublic appends a live public message. Messages without sender or body, private
// messages, and messages already in the feed are ignored.
func (l *Ledger) ApplyPublic(msg chat.Message) bool {
	if msg.Sender == "" || msg.Body == "" || !msg.IsPublic() {
		return false
	}
	return l.public.append(msg)
}

// ApplyPrivate routes a live private message to the thread of its partner. Messages
// missing either name, not involving the local user, addressed to their own sender,
// or already in the thread are ignored.
func (l *Ledger) ApplyPrivate(msg chat.Message) bool {
	if msg.Sender == "" || msg.Recipient == "" || msg.Sender == msg.Recipient || !msg.Involves(l.self) {
		return false
	}
	partner := msg.Partner(l.self)
	if !l.thread(partner).append(msg) {
		return false
	}
	l.markUnread(partner, msg)
	return true
}

func (l *Ledger) markUnread(partner string, msg chat.Message) {
	if msg.Sender != l.self && partner != l.selected {
		l.unread[partner] = true
	}
}

// Select makes target ("public" or a partner name) the current thread and clears its unread flag.
func (l *Ledger) Select(target string) {
	l.selected = target
	delete(l.unread, target)
}

// Selected returns the current thread.
func (l *Ledger) Selected() string {
	return l.selected
}

// HasUnread reports whether the thread with partner has messages from them that
// arrived while another thread was selected.
func (l *Ledger) HasUnread(partner string) bool {
	return l.unread[partner]
}

// Unread returns the partners whose threads are flagged, sorted by name.
func (l *Ledger) Unread() []string {
	out := make([]string, 0, len(l.unread))
	for partner := range l.unread {
		out = append(out, partner)
	}
	sort.Strings(out)
	return out
}

// Public returns the public feed in display order.
func (l *Ledger) Public() []chat.Message {
	return l.public.messages()
}

// Thread returns the private thread with partner in display order.
func (l *Ledger) Thread(partner string) []chat.Message {
	f, ok := l.threads[partner]
	if !ok {
		return nil
	}
	return f.messages()
}

// Partners returns the names of all non-empty threads, sorted.
func (l *Ledger) Partners() []string {
	out := make([]string, 0, len(l.threads))
	for partner, f := range l.threads {
		if f.len() > 0 {
			out = append(out, partner)
		}
	}
	sort.Strings(out)
	return out
}

// Threads returns a copy of the private thread map, omitting empty threads.
func (l *Ledger) Threads() map[string][]chat.Message {
	out := make(map[string][]chat.Message, len(l.threads))
	for partner, f := range l.threads {
		if f.len() > 0 {
			out[partner] = f.messages()
		}
	}
	return out
}
