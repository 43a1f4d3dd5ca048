package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/scienceol/powerwatch/internal/logging"
	"github.com/scienceol/powerwatch/internal/protocol"
)

const defaultAttempts = 5

// SenderOptions configures a Sender.
type SenderOptions struct {
	URL   string
	Token string
	// Attempts bounds how many times Send dials. Zero means 5.
	Attempts int
}

// Query is an end-session query to forward.
type Query struct {
	Sender string
	Reason string
}

// Sender forwards end-session queries to a monitor's Hub.
type Sender struct {
	log         zerolog.Logger
	opts        SenderOptions
	dialer      *websocket.Dialer
	reconnector *Reconnector
}

// NewSender creates a Sender.
func NewSender(ctx context.Context, opts SenderOptions) *Sender {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	return &Sender{
		log:         logging.FromContext(ctx).With().Str("component", "relay-sender").Logger(),
		opts:        opts,
		dialer:      websocket.DefaultDialer,
		reconnector: NewReconnector(),
	}
}

// Send forwards q and waits for the acknowledgement. It returns false
// when the monitor dropped the query as a duplicate of a recent one.
// Dial failures are retried with backoff.
func (s *Sender) Send(ctx context.Context, q Query) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		delivered, err := s.sendOnce(ctx, q)
		if err == nil {
			s.reconnector.Reset()
			return delivered, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return false, perm.err
		}
		lastErr = err
		s.log.Debug().Err(err).Int("attempt", attempt).Msg("relay send failed")

		if attempt == s.opts.Attempts || !s.reconnector.Wait(ctx) {
			break
		}
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, fmt.Errorf("relay send: %w", lastErr)
}

func (s *Sender) sendOnce(ctx context.Context, q Query) (bool, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return false, &permanentError{fmt.Errorf("invalid URL: %w", err)}
	}
	if s.opts.Token != "" {
		v := u.Query()
		v.Set("token", s.opts.Token)
		u.RawQuery = v.Encode()
	}

	conn, resp, err := s.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return false, &permanentError{errors.New("relay rejected token")}
		}
		return false, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	}

	// Read the "connected" message
	var connMsg struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&connMsg); err != nil {
		return false, fmt.Errorf("failed to read connected message: %w", err)
	}
	if connMsg.Type != protocol.TypeConnected {
		return false, &permanentError{fmt.Errorf("unexpected first message type: %s", connMsg.Type)}
	}

	payload, err := json.Marshal(protocol.QueryEndSessionPayload{Sender: q.Sender, Reason: q.Reason})
	if err != nil {
		return false, &permanentError{err}
	}
	id := uuid.NewString()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(protocol.Request{ID: id, Type: protocol.TypeQueryEndSession, Payload: payload}); err != nil {
		return false, fmt.Errorf("write query: %w", err)
	}

	for {
		var msg struct {
			ID      string          `json:"id"`
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return false, fmt.Errorf("read ack: %w", err)
		}
		if msg.ID != id {
			continue
		}

		switch msg.Type {
		case protocol.TypeAck:
			var ack protocol.AckPayload
			if err := json.Unmarshal(msg.Payload, &ack); err != nil {
				return false, &permanentError{fmt.Errorf("decode ack: %w", err)}
			}
			return ack.Delivered, nil
		case protocol.TypeError:
			var e protocol.ErrorPayload
			_ = json.Unmarshal(msg.Payload, &e)
			return false, &permanentError{fmt.Errorf("relay rejected query: %s", e.Error)}
		default:
			return false, &permanentError{fmt.Errorf("unexpected response type: %s", msg.Type)}
		}
	}
}

// permanentError stops Send from retrying.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
