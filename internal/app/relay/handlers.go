package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/transport"
	"chatsync/internal/configs"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/limiter"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/randx"
	"chatsync/internal/pkg/req"
	"chatsync/internal/pkg/resp"
)

// requestTimeout bounds every store call made on behalf of an HTTP request.
const requestTimeout = 5 * time.Second

// Deps bundles what the relay's handlers need.
type Deps struct {
	Hub     *Hub
	Store   Store
	Metrics *Metrics
	Config  *configs.AppConfig
}

// HandleRegister records a username in the user registry.
func HandleRegister(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input transport.UserRecord
		if err := req.BindJSON(r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		name := chat.NormalizeName(input.Username)
		// "public" addresses the shared feed and cannot name a user.
		if name == "" || name == chat.PublicTarget {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		if err := deps.Store.RegisterUser(ctx, name); err != nil {
			logx.Error(err, "register: store failed", "username", name)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Metrics.Registrations.Inc()
		logx.Info("User registered.", "username", name)

		resp.RespondSuccess(w, r, transport.UserRecord{Username: name})
	}
}

// HandleListUsers answers with every registered user as a bare JSON array.
func HandleListUsers(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		users, err := deps.Store.ListUsers(ctx)
		if err != nil {
			logx.Error(err, "list users: store failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondJSON(w, r, http.StatusOK, users)
	}
}

// HandleListMessages answers with the full message history as a bare JSON array.
func HandleListMessages(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		history, err := deps.Store.ListMessages(ctx)
		if err != nil {
			logx.Error(err, "list messages: store failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondJSON(w, r, http.StatusOK, history)
	}
}

// HandleWebSocket upgrades the connection and attaches a new peer to the hub.
func HandleWebSocket(deps *Deps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		peer := NewPeer(deps.Hub, conn, randx.PeerID())

		deps.Hub.Register(peer)

		go peer.WritePump()

		logx.Info("WebSocket connection established and peer registered", "peer_id", peer.ID)

		peer.ReadPump()
	}
}
