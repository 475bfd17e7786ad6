package transport

import "sync"

// Subscription receives events published to a Fanout until Unsubscribe is called.
type Subscription struct {
	ch    chan Event
	done  chan struct{}
	once  sync.Once
	owner *Fanout
	id    int
}

// C returns the channel delivering events. It is never closed; select on it together
// with a stop signal of your own.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Unsubscribe detaches the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.owner.remove(s.id)
	})
}

// Fanout delivers each published event to every live subscription in publish order.
type Fanout struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
	closed chan struct{}
	once   sync.Once
}

// NewFanout returns an empty fanout.
func NewFanout() *Fanout {
	return &Fanout{
		subs:   make(map[int]*Subscription),
		closed: make(chan struct{}),
	}
}

// Subscribe attaches a new subscription with the given channel buffer.
func (f *Fanout) Subscribe(buffer int) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	sub := &Subscription{
		ch:    make(chan Event, buffer),
		done:  make(chan struct{}),
		owner: f,
		id:    f.nextID,
	}
	f.subs[sub.id] = sub
	return sub
}

func (f *Fanout) remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, id)
}

// Subscribers returns the number of attached subscriptions.
func (f *Fanout) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Publish delivers ev to every subscription, blocking on full buffers until the
// subscriber drains, unsubscribes, or the fanout is closed.
func (f *Fanout) Publish(ev Event) {
	select {
	case <-f.closed:
		return
	default:
	}

	f.mu.Lock()
	targets := make([]*Subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		targets = append(targets, sub)
	}
	f.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- ev:
		case <-sub.done:
		case <-f.closed:
			return
		}
	}
}

// Close unblocks pending publishes. Further publishes return immediately.
func (f *Fanout) Close() {
	f.once.Do(func() { close(f.closed) })
}
