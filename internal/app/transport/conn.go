package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time to wait for any frame (including a server ping) before the connection is considered dead.
	readWait = 90 * time.Second

	// maximum allowed size (in bytes) of a frame received from the server.
	maxMessageSize = 64 * 1024

	// capacity of the outbound frame queue.
	sendQueueSize = 256

	// handshake timeout used when the dial context carries no deadline.
	handshakeTimeout = 10 * time.Second
)

// WebSocketURL derives the realtime endpoint from an http(s) backend base URL.
func WebSocketURL(backendURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(backendURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend url scheme %q", u.Scheme)
	}

	u.Path += "/ws"
	return u.String(), nil
}

// Conn is one live realtime channel connection. Inbound frames are decoded and
// published to subscribers; outbound events are queued and written by a single writer.
type Conn struct {
	ws     *websocket.Conn
	send   chan []byte
	events *Fanout

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	logger zerolog.Logger
}

// WSDialer dials realtime channel connections to a fixed endpoint.
type WSDialer struct {
	endpoint string
	dialer   *websocket.Dialer
}

// NewWSDialer returns a dialer for the realtime endpoint of backendURL.
func NewWSDialer(backendURL string) (*WSDialer, error) {
	endpoint, err := WebSocketURL(backendURL)
	if err != nil {
		return nil, err
	}
	return &WSDialer{
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
	}, nil
}

// Dial opens a connection and starts its read and write pumps.
func (d *WSDialer) Dial(ctx context.Context) (*Conn, error) {
	ws, _, err := d.dialer.DialContext(ctx, d.endpoint, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrTransport, err)
	}

	c := &Conn{
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		events: NewFanout(),
		done:   make(chan struct{}),
		logger: logx.Component("transport").With().Str("endpoint", d.endpoint).Logger(),
	}

	c.wg.Add(2)
	go c.readPump()
	go c.writePump()

	c.logger.Info().Msg("Realtime channel connected.")
	return c, nil
}

// Subscribe attaches a subscriber to inbound events.
func (c *Conn) Subscribe(buffer int) *Subscription {
	return c.events.Subscribe(buffer)
}

// Emit queues an outbound event. It fails with a transport error when the
// connection is closed or the queue is full.
func (c *Conn) Emit(ctx context.Context, eventType EventType, payload any) error {
	frame, err := Encode(eventType, payload)
	if err != nil {
		return errs.Wrap(errs.ErrTransport, err)
	}

	select {
	case <-c.done:
		return errs.Wrap(errs.ErrTransport, fmt.Errorf("connection closed"))
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errs.Wrap(errs.ErrTransport, fmt.Errorf("connection closed"))
	case <-ctx.Done():
		return errs.Wrap(errs.ErrTransport, ctx.Err())
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping event")
		return errs.Wrap(errs.ErrTransport, fmt.Errorf("send queue full"))
	}
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close shuts the connection down and waits for both pumps to exit. It is idempotent.
func (c *Conn) Close() error {
	c.shutdown()
	c.wg.Wait()
	return nil
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.events.Close()
	})
}

// readPump decodes inbound frames and publishes them until the connection fails or closes.
func (c *Conn) readPump() {
	defer c.wg.Done()
	defer c.shutdown()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))

	c.ws.SetPingHandler(func(appData string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
		err := c.ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("Realtime channel closed unexpectedly")
			} else {
				c.logger.Info().Err(err).Msg("Realtime channel closed")
			}
			c.events.Publish(Event{Type: EventDisconnected, Err: errs.Wrap(errs.ErrTransport, err)})
			return
		}

		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))

		ev, err := Decode(frame)
		if err != nil {
			c.logger.Warn().Err(err).Bytes("frame", frame).Msg("Server sent invalid event")
			continue
		}
		c.events.Publish(ev)
	}
}

// writePump writes queued frames until the connection is closed, then sends a close frame.
func (c *Conn) writePump() {
	defer c.wg.Done()
	defer func() {
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in writePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				c.shutdown()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error().Err(err).Msg("Error writing event")
				c.shutdown()
				return
			}

		case <-c.done:
			closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client teardown")
			if err := c.ws.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to send close frame")
			}
			return
		}
	}
}
