package relay

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatsync/internal/app/transport"
	"chatsync/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the relay to wait for a Pong message from the peer.
	pongWait = 60 * time.Second

	// frequency at which the relay sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the peer.
	maxFrameSize = 8192

	// capacity of a peer's outbound queue.
	peerQueueSize = 256
)

// Peer is one websocket connection to the relay.
type Peer struct {
	// ID uniquely identifies the connection.
	ID string

	// name is the participant name announced by the join event; owned by the hub loop.
	name string

	hub  *Hub
	conn *websocket.Conn

	// a buffered channel of frames waiting to be written to the peer.
	send chan []byte

	logger zerolog.Logger
}

// NewPeer constructs a peer for an upgraded connection.
func NewPeer(hub *Hub, conn *websocket.Conn, id string) *Peer {
	return &Peer{
		ID:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, peerQueueSize),
		logger: logx.Component("relay_peer").With().Str("peer_id", id).Logger(),
	}
}

// ReadPump decodes frames from the peer and hands them to the hub until the connection ends.
func (p *Peer) ReadPump() {
	defer p.cleanupOnDisconnect()

	p.conn.SetReadLimit(maxFrameSize)

	if err := p.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		p.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Info().Err(err).Msg("Error reading frame (peer close/going away)")
			}
			break
		}

		ev, err := transport.Decode(frame)
		if err != nil {
			p.logger.Warn().Err(err).Bytes("frame", frame).Msg("Peer sent invalid event")
			continue
		}

		p.hub.Dispatch(p, ev)
	}
}

// cleanupOnDisconnect unregisters the peer and closes its connection.
func (p *Peer) cleanupOnDisconnect() {
	p.logger.Debug().Msg("Peer connection cleanup starting.")

	p.hub.Unregister(p)

	if err := p.conn.Close(); err != nil {
		p.logger.Debug().Err(err).Msg("Peer connection close error")
	}
}

// WritePump writes queued frames and periodic pings until the queue is closed or a write fails.
func (p *Peer) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := p.conn.Close(); err != nil {
			p.logger.Debug().Err(err).Msg("Peer connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-p.send:
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				p.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := p.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					p.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				p.logger.Error().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				p.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.logger.Debug().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
