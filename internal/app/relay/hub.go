package relay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/transport"
	"chatsync/internal/pkg/logx"
)

const (
	// capacity of the hub's inbound event queue.
	inboundBuffer = 1024

	// timeout for recording a message in the store.
	storeTimeout = 5 * time.Second
)

type inbound struct {
	peer *Peer
	ev   transport.Event
}

// Hub relays events between peers. All peer bookkeeping happens on the Run loop.
type Hub struct {
	// connected peers keyed by peer ID; owned by Run.
	peers map[string]*Peer

	register   chan *Peer
	unregister chan *Peer
	inbound    chan inbound

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	store   Store
	metrics *Metrics
	now     func() time.Time
	logger  zerolog.Logger
}

// NewHub creates a hub recording messages in store.
func NewHub(store Store, metrics *Metrics) *Hub {
	return &Hub{
		peers:      make(map[string]*Peer),
		register:   make(chan *Peer),
		unregister: make(chan *Peer),
		inbound:    make(chan inbound, inboundBuffer),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		store:      store,
		metrics:    metrics,
		now:        time.Now,
		logger:     logx.Component("relay_hub"),
	}
}

// Register adds a peer to the hub.
func (h *Hub) Register(p *Peer) {
	select {
	case h.register <- p:
	case <-h.stopChan:
		close(p.send)
	}
}

// Unregister removes a peer from the hub.
func (h *Hub) Unregister(p *Peer) {
	select {
	case h.unregister <- p:
	case <-h.stopChan:
	}
}

// Dispatch queues an event received from p.
func (h *Hub) Dispatch(p *Peer, ev transport.Event) {
	select {
	case h.inbound <- inbound{peer: p, ev: ev}:
	case <-h.stopChan:
	}
}

// Stop terminates the Run loop and waits for it to finish.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})
	<-h.done
}

// Run is the hub's event loop.
func (h *Hub) Run() {
	defer func() {
		for id, p := range h.peers {
			close(p.send)
			delete(h.peers, id)
		}
		h.metrics.ConnectedPeers.Set(0)
		h.logger.Info().Msg("Hub Run loop finished.")
		close(h.done)
	}()

	for {
		select {
		case p := <-h.register:
			h.peers[p.ID] = p
			h.metrics.ConnectedPeers.Inc()
			h.logger.Info().Str("peer_id", p.ID).Int("total_peers", len(h.peers)).Msg("Peer connected.")

		case p := <-h.unregister:
			h.removePeer(p)

		case in := <-h.inbound:
			h.handle(in.peer, in.ev)

		case <-h.stopChan:
			return
		}
	}
}

// removePeer drops p and announces its departure when no other connection uses its name.
func (h *Hub) removePeer(p *Peer) {
	current, ok := h.peers[p.ID]
	if !ok || current != p {
		h.logger.Debug().Str("peer_id", p.ID).Msg("Unregister for unknown or already removed peer.")
		return
	}

	delete(h.peers, p.ID)
	close(p.send)
	h.metrics.ConnectedPeers.Dec()

	h.logger.Info().
		Str("peer_id", p.ID).
		Str("username", p.name).
		Int("total_peers", len(h.peers)).
		Msg("Peer disconnected.")

	if p.name != "" && !h.nameOnline(p.name) {
		h.broadcast(transport.EventUserLeft, transport.PresencePayload{SenderName: p.name}, func(*Peer) bool { return true })
	}
}

func (h *Hub) nameOnline(name string) bool {
	for _, p := range h.peers {
		if p.name == name {
			return true
		}
	}
	return false
}

// handle applies one inbound event from p.
func (h *Hub) handle(p *Peer, ev transport.Event) {
	if current, ok := h.peers[p.ID]; !ok || current != p {
		return
	}
	h.metrics.Events.WithLabelValues(string(ev.Type)).Inc()

	logger := h.logger.With().Str("peer_id", p.ID).Str("event", string(ev.Type)).Logger()

	switch ev.Type {
	case transport.EventJoin:
		name := chat.NormalizeName(ev.Presence.SenderName)
		if name == "" {
			logger.Warn().Msg("Join without a name ignored.")
			return
		}
		p.name = name
		logger.Info().Str("username", name).Msg("Peer joined.")

		h.broadcast(transport.EventUserJoined, transport.PresencePayload{SenderName: name}, func(other *Peer) bool {
			return other != p
		})

	case transport.EventMessage, transport.EventPrivateMessage:
		if p.name == "" {
			logger.Warn().Msg("Message before join ignored.")
			return
		}

		msg := ev.Message
		msg.Sender = p.name
		if ev.Type == transport.EventMessage {
			msg.Recipient = ""
		}
		if msg.Body == "" || (ev.Type == transport.EventPrivateMessage && msg.Recipient == "") {
			logger.Warn().Msg("Incomplete message ignored.")
			return
		}
		if msg.Status == "" {
			msg.Status = chat.StatusSent
		}
		if msg.Timestamp == "" {
			msg.Timestamp = chat.FormatTimestamp(h.now())
		}

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := h.store.AppendMessage(ctx, msg); err != nil {
			logger.Error().Err(err).Msg("Failed to record message. Relaying anyway.")
		}
		cancel()

		if ev.Type == transport.EventMessage {
			h.broadcast(ev.Type, msg, func(*Peer) bool { return true })
			return
		}
		h.broadcast(ev.Type, msg, func(other *Peer) bool {
			return other.name == msg.Sender || other.name == msg.Recipient
		})

	default:
		logger.Warn().Msg("Peer sent unsupported event type")
	}
}

// broadcast sends an event to every peer accepted by filter. Peers whose queue is
// full are disconnected.
func (h *Hub) broadcast(eventType transport.EventType, payload any, filter func(*Peer) bool) {
	frame, err := transport.Encode(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(eventType)).Msg("Error encoding frame for broadcast.")
		return
	}

	var slow []*Peer
	for _, p := range h.peers {
		if !filter(p) {
			continue
		}
		select {
		case p.send <- frame:
		default:
			h.metrics.DroppedFrames.Inc()
			h.logger.Warn().Str("peer_id", p.ID).Msg("Peer send queue full, disconnecting.")
			slow = append(slow, p)
		}
	}

	for _, p := range slow {
		h.removePeer(p)
	}
}
