// Package relay carries end-session queries from other processes to the
// monitor over a websocket. Several processes may see the same query and
// forward it; the monitor's relay coordinator collapses the duplicates.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/scienceol/powerwatch/internal/logging"
	"github.com/scienceol/powerwatch/internal/power"
	"github.com/scienceol/powerwatch/internal/protocol"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Recorder observes relay outcomes. Optional.
type Recorder interface {
	RelayQuery(delivered bool)
}

// HubOptions configures a Hub.
type HubOptions struct {
	// Token, when set, must be passed by senders as the token query
	// parameter.
	Token   string
	Metrics Recorder
}

// Hub accepts relay senders and implements power.RelayChannel. Queries
// that arrive while no handler is registered are dropped.
type Hub struct {
	log      zerolog.Logger
	token    string
	metrics  Recorder
	upgrader websocket.Upgrader

	mu       sync.Mutex
	handlers []func(power.RelayMessage)
	conns    map[*websocket.Conn]struct{}
	closed   bool
}

var _ power.RelayChannel = (*Hub)(nil)

// NewHub creates a Hub. Serve it with net/http.
func NewHub(ctx context.Context, opts HubOptions) *Hub {
	return &Hub{
		log:     logging.FromContext(ctx).With().Str("component", "relay").Logger(),
		token:   opts.Token,
		metrics: opts.Metrics,
		conns:   make(map[*websocket.Conn]struct{}),
	}
}

// Once implements power.RelayChannel.
func (h *Hub) Once(handler func(power.RelayMessage)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, handler)
}

// Dispatch hands msg to the registered handlers, consuming them. It
// reports whether any handler was waiting.
func (h *Hub) Dispatch(msg power.RelayMessage) bool {
	h.mu.Lock()
	handlers := h.handlers
	h.handlers = nil
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(msg)
	}

	delivered := len(handlers) > 0
	if h.metrics != nil {
		h.metrics.RelayQuery(delivered)
	}
	return delivered
}

// ServeHTTP upgrades the request and serves one sender.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.URL.Query().Get("token") != h.token {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("upgrade failed")
		return
	}
	if !h.track(conn) {
		conn.Close()
		return
	}
	defer h.untrack(conn)

	senderID := uuid.NewString()
	log := h.log.With().Str("sender_id", senderID).Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("sender connected")

	if err := h.write(conn, protocol.Response{
		Type:    protocol.TypeConnected,
		Payload: protocol.ConnectedPayload{SenderID: senderID},
	}); err != nil {
		log.Debug().Err(err).Msg("write connected message")
		return
	}

	// Single reader; every write below happens on this goroutine too.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("sender disconnected")
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			log.Debug().Err(err).Msg("invalid message")
			continue
		}

		var resp protocol.Response
		switch req.Type {
		case protocol.TypePing:
			resp = protocol.Response{ID: req.ID, Type: protocol.TypePong}
		case protocol.TypePong:
			continue
		case protocol.TypeQueryEndSession:
			resp = h.handleQuery(req, senderID)
		default:
			resp = protocol.Response{
				ID:      req.ID,
				Type:    protocol.TypeError,
				Payload: protocol.ErrorPayload{Error: fmt.Sprintf("unknown request type: %s", req.Type)},
			}
		}

		if err := h.write(conn, resp); err != nil {
			log.Debug().Err(err).Msg("write error")
			return
		}
	}
}

func (h *Hub) handleQuery(req protocol.Request, senderID string) protocol.Response {
	var p protocol.QueryEndSessionPayload
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return protocol.Response{ID: req.ID, Type: protocol.TypeError, Payload: protocol.ErrorPayload{Error: err.Error()}}
		}
	}

	msg := power.RelayMessage{
		ID:       req.ID,
		Sender:   p.Sender,
		Reason:   p.Reason,
		Received: time.Now(),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Sender == "" {
		msg.Sender = senderID
	}

	delivered := h.Dispatch(msg)
	h.log.Debug().Str("sender", msg.Sender).Bool("delivered", delivered).Msg("end-session query")

	return protocol.Response{ID: msg.ID, Type: protocol.TypeAck, Payload: protocol.AckPayload{Delivered: delivered}}
}

func (h *Hub) write(conn *websocket.Conn, resp protocol.Response) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(resp)
}

func (h *Hub) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *Hub) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// Close disconnects every sender. http.Server.Shutdown does not close
// hijacked connections, so call this after it.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	var err error
	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}
	return err
}
