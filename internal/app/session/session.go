/*
Package session implements the client session controller: the state machine that
logs in, connects the realtime channel, runs the bootstrap fetches, and applies
every live event and bootstrap result to the roster and message ledger.

All reconciliation for one connection runs on a single event-loop goroutine
(Session.run). Public methods serialise with it through the session mutex, so each
event, fetch result or user action is applied to completion before the next one.
*/
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/identity"
	"chatsync/internal/app/ledger"
	"chatsync/internal/app/roster"
	"chatsync/internal/app/transport"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
)

// subscriptionBuffer is the capacity of the live-event subscription channel.
const subscriptionBuffer = 64

// State is a step of the session lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Joining
	Active
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Joining:
		return "joining"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// API is the request/response side of the transport.
type API interface {
	Register(ctx context.Context, username string) error
	FetchUsers(ctx context.Context) ([]string, error)
	FetchMessages(ctx context.Context) ([]chat.Message, error)
}

// Channel is one live realtime connection.
type Channel interface {
	Subscribe(buffer int) *transport.Subscription
	Emit(ctx context.Context, eventType transport.EventType, payload any) error
	Close() error
}

// DialFunc opens a realtime connection.
type DialFunc func(ctx context.Context) (Channel, error)

// WebSocketDialer adapts a websocket dialer to a DialFunc.
func WebSocketDialer(d *transport.WSDialer) DialFunc {
	return func(ctx context.Context) (Channel, error) {
		conn, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Session is the controller of one client. It exclusively owns the identity and
// drives the roster and ledger of the current connection.
type Session struct {
	api        API
	dial       DialFunc
	identities *identity.Store
	now        func() time.Time
	logger     zerolog.Logger

	// lifecycle serialises Login, Teardown and SelectPreviousIdentity.
	lifecycle sync.Mutex

	// mu protects every field below; the event loop holds it while applying.
	mu     sync.RWMutex
	state  State
	roster *roster.Roster
	ledger *ledger.Ledger
	draft  string
	linkUp bool

	// epoch identifies the current connection; results tagged with an older epoch are dropped.
	epoch    uint64
	conn     Channel
	sub      *transport.Subscription
	stop     chan struct{}
	loopDone chan struct{}

	updates chan struct{}
}

// Option customises a Session.
type Option func(*Session)

// WithClock overrides the clock used to timestamp outbound messages.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New returns a disconnected session.
func New(api API, dial DialFunc, identities *identity.Store, opts ...Option) *Session {
	s := &Session{
		api:        api,
		dial:       dial,
		identities: identities,
		now:        time.Now,
		logger:     logx.Component("session"),
		updates:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Updates is signalled after every change to the session view. Signals coalesce.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Login registers name, connects the realtime channel, emits the join event and
// starts the bootstrap fetches. A live session is torn down first.
func (s *Session) Login(ctx context.Context, name string) error {
	name = chat.NormalizeName(name)
	if name == "" {
		return errs.NewError(errs.ErrValidation, "Username")
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.teardown()

	logger := s.logger.With().Str("username", name).Logger()

	s.mu.Lock()
	s.identities.SetName(name)
	s.state = Connecting
	s.mu.Unlock()
	s.notify()

	if err := s.api.Register(ctx, name); err != nil {
		logger.Warn().Err(err).Msg("Registration failed.")
		s.fail()
		if errs.Is(err, errs.ErrRegistration) {
			return err
		}
		return errs.Wrap(errs.ErrRegistration, err)
	}

	s.setState(Joining)

	conn, err := s.dial(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect realtime channel.")
		s.fail()
		if errs.Is(err, errs.ErrTransport) {
			return err
		}
		return errs.Wrap(errs.ErrTransport, err)
	}

	s.mu.Lock()

	s.epoch++
	epoch := s.epoch
	sub := conn.Subscribe(subscriptionBuffer)
	results := make(chan bootstrapResult, 2)
	stop := make(chan struct{})
	done := make(chan struct{})

	s.conn, s.sub, s.stop, s.loopDone = conn, sub, stop, done
	s.roster = roster.New(name)
	s.ledger = ledger.New(name)
	s.draft = ""
	s.linkUp = true

	// The loop blocks on s.mu until the join has been emitted and the state is Active.
	go s.run(epoch, sub, results, stop, done)

	if err := conn.Emit(ctx, transport.EventJoin, transport.PresencePayload{SenderName: name}); err != nil {
		s.mu.Unlock()
		logger.Error().Err(err).Msg("Failed to emit join event.")
		s.teardown()
		if errs.Is(err, errs.ErrTransport) {
			return err
		}
		return errs.Wrap(errs.ErrTransport, err)
	}

	s.state = Active
	s.identities.MarkConnected()
	if _, err := s.identities.Remember(name); err != nil {
		logger.Warn().Err(err).Msg("Failed to persist previous identities.")
	}
	s.mu.Unlock()
	s.notify()

	logger.Info().Uint64("epoch", epoch).Msg("Session active. Starting bootstrap.")

	s.startBootstrap(context.WithoutCancel(ctx), epoch, results)
	return nil
}

// fail returns the session to Disconnected after a failed login.
func (s *Session) fail() {
	s.mu.Lock()
	s.identities.Reset()
	s.state = Disconnected
	s.mu.Unlock()
	s.notify()
}

// SelectPreviousIdentity makes name the current identity, disconnected. It does not log in.
func (s *Session) SelectPreviousIdentity(name string) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.teardown()

	s.mu.Lock()
	s.identities.SetName(name)
	s.mu.Unlock()
	s.notify()
}

// Teardown detaches the event subscription, closes the connection, and resets the
// identity to disconnected. It is idempotent and safe to defer.
func (s *Session) Teardown() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.teardown()
}

func (s *Session) teardown() {
	s.mu.Lock()
	conn, sub, stop, done := s.conn, s.sub, s.stop, s.loopDone
	s.conn, s.sub, s.stop, s.loopDone = nil, nil, nil, nil
	wasLive := s.state != Disconnected
	s.state = Disconnected
	s.linkUp = false
	s.identities.Reset()
	s.epoch++
	s.mu.Unlock()

	if conn == nil {
		if wasLive {
			s.notify()
		}
		return
	}

	close(stop)
	<-done
	sub.Unsubscribe()

	if err := conn.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Realtime channel close error")
	}

	s.logger.Info().Msg("Session torn down.")
	s.notify()
}

// SetDraft replaces the pending compose buffer.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
	s.notify()
}

// SelectThread makes target ("public" or a partner name) the current thread and clears its unread flag.
func (s *Session) SelectThread(target string) {
	s.mu.Lock()
	if s.ledger != nil {
		s.ledger.Select(target)
	}
	s.mu.Unlock()
	s.notify()
}

// SendDraft sends the compose buffer to the selected thread.
func (s *Session) SendDraft(ctx context.Context) error {
	s.mu.RLock()
	text := s.draft
	target := chat.PublicTarget
	if s.ledger != nil {
		target = s.ledger.Selected()
	}
	s.mu.RUnlock()

	return s.SendMessage(ctx, text, target)
}

// SendMessage emits text to target: the public feed when target is "public",
// otherwise a private message to the named partner. Blank text and a private
// message to the local user are rejected without any side effect. On success
// the compose buffer is cleared; the message itself appears once the server
// echoes it back over the realtime channel.
func (s *Session) SendMessage(ctx context.Context, text, target string) error {
	if strings.TrimSpace(text) == "" {
		return errs.NewError(errs.ErrValidation, "Message")
	}

	s.mu.RLock()
	conn, state := s.conn, s.state
	self := s.identities.Current().Name
	s.mu.RUnlock()

	if target != chat.PublicTarget && target != "" && chat.NormalizeName(target) == self {
		return errs.NewError(errs.ErrValidation, "Recipient").WithMessage("You cannot send a private message to yourself.")
	}
	if state != Active || conn == nil {
		return errs.NewError(errs.ErrNotActive)
	}

	var err error
	if target == chat.PublicTarget || target == "" {
		err = conn.Emit(ctx, transport.EventMessage, chat.NewPublic(self, text, s.now()))
	} else {
		err = conn.Emit(ctx, transport.EventPrivateMessage, chat.NewPrivate(self, target, text, s.now()))
	}
	if err != nil {
		s.logger.Error().Err(err).Str("target", target).Msg("Failed to emit message.")
		return err
	}

	s.mu.Lock()
	s.draft = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

// run is the event loop of one connection.
func (s *Session) run(epoch uint64, sub *transport.Subscription, results <-chan bootstrapResult, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case ev := <-sub.C():
			s.applyEvent(epoch, ev)

		case res := <-results:
			s.applyBootstrap(epoch, res)

		case <-stop:
			return
		}
	}
}

// applyEvent merges one live event. Events of a superseded connection are dropped.
func (s *Session) applyEvent(epoch uint64, ev transport.Event) {
	s.mu.Lock()

	if epoch != s.epoch || s.state != Active {
		s.mu.Unlock()
		s.logger.Debug().Str("event", string(ev.Type)).Msg("Dropping event for inactive session.")
		return
	}

	switch ev.Type {
	case transport.EventUserJoined:
		s.roster.ApplyJoin(ev.Presence.SenderName)

	case transport.EventUserLeft:
		s.roster.ApplyLeave(ev.Presence.SenderName)

	case transport.EventMessage:
		s.ledger.ApplyPublic(ev.Message)

	case transport.EventPrivateMessage:
		if ev.Message.Sender != "" && ev.Message.Recipient != "" {
			s.ledger.ApplyPrivate(ev.Message)
			s.roster.ObservePrivate(ev.Message)
		}

	case transport.EventDisconnected:
		s.linkUp = false
		s.logger.Error().Err(ev.Err).Msg("Realtime channel lost. No automatic reconnect.")

	default:
		s.logger.Debug().Str("event", string(ev.Type)).Msg("Ignoring event.")
	}

	s.mu.Unlock()
	s.notify()
}
