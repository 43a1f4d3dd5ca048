package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scienceol/powerwatch/internal/power"
	"github.com/scienceol/powerwatch/internal/protocol"
)

type countingRecorder struct {
	mu        sync.Mutex
	delivered int
	ignored   int
}

func (r *countingRecorder) RelayQuery(delivered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if delivered {
		r.delivered++
	} else {
		r.ignored++
	}
}

func startHub(t *testing.T, opts HubOptions) (*Hub, string) {
	t.Helper()

	hub := NewHub(context.Background(), opts)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDispatchConsumesHandlers(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	hub := NewHub(context.Background(), HubOptions{Metrics: rec})

	assert.False(t, hub.Dispatch(power.RelayMessage{ID: "a"}))

	var got []string
	hub.Once(func(m power.RelayMessage) { got = append(got, m.ID) })
	assert.True(t, hub.Dispatch(power.RelayMessage{ID: "b"}))
	assert.False(t, hub.Dispatch(power.RelayMessage{ID: "c"}))

	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, 1, rec.delivered)
	assert.Equal(t, 2, rec.ignored)
}

func TestSenderDeliversQuery(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t, HubOptions{})

	received := make(chan power.RelayMessage, 1)
	hub.Once(func(m power.RelayMessage) { received <- m })

	sender := NewSender(context.Background(), SenderOptions{URL: url})
	delivered, err := sender.Send(context.Background(), Query{Sender: "renderer-1", Reason: "logoff"})
	require.NoError(t, err)
	assert.True(t, delivered)

	msg := <-received
	assert.Equal(t, "renderer-1", msg.Sender)
	assert.Equal(t, "logoff", msg.Reason)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Received.IsZero())

	delivered, err = sender.Send(context.Background(), Query{Sender: "renderer-2"})
	require.NoError(t, err)
	assert.False(t, delivered, "no handler registered, query dropped")
}

func TestSenderDefaultsSenderToConnectionID(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t, HubOptions{})

	received := make(chan power.RelayMessage, 1)
	hub.Once(func(m power.RelayMessage) { received <- m })

	_, err := NewSender(context.Background(), SenderOptions{URL: url}).Send(context.Background(), Query{})
	require.NoError(t, err)

	msg := <-received
	assert.Len(t, msg.Sender, 36)
}

func TestHubRejectsBadToken(t *testing.T) {
	t.Parallel()

	_, url := startHub(t, HubOptions{Token: "s3cret"})

	_, err := NewSender(context.Background(), SenderOptions{URL: url, Token: "wrong", Attempts: 3}).
		Send(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")

	_, err = NewSender(context.Background(), SenderOptions{URL: url, Token: "s3cret"}).
		Send(context.Background(), Query{})
	require.NoError(t, err)
}

func TestHubAnswersPingAndUnknownTypes(t *testing.T) {
	t.Parallel()

	_, url := startHub(t, HubOptions{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var resp protocol.Request
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, protocol.TypeConnected, resp.Type)

	require.NoError(t, conn.WriteJSON(protocol.Request{ID: "1", Type: protocol.TypePing}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, protocol.TypePong, resp.Type)
	assert.Equal(t, "1", resp.ID)

	require.NoError(t, conn.WriteJSON(protocol.Request{ID: "2", Type: "reboot"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, protocol.TypeError, resp.Type)
	assert.Contains(t, string(resp.Payload), "unknown request type")
}

func TestSenderGivesUpWhenUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := NewSender(context.Background(), SenderOptions{URL: url, Attempts: 2}).
		Send(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial failed")
}

func TestSenderStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSender(context.Background(), SenderOptions{URL: url}).Send(ctx, Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

// Two processes forwarding the same end-session query produce a single
// shutdown event.
func TestDuplicateQueriesCollapseIntoOneShutdown(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t, HubOptions{})
	clk := clock.NewMock()

	m := power.New(context.Background(), power.Options{
		Factory:  func(context.Context) (power.Source, error) { return nopSource{}, nil },
		Relay:    hub,
		Strategy: power.StrategyRelay,
		Clock:    clk,
	})
	defer m.Close()

	var mu sync.Mutex
	var senders []string
	m.On(power.EventShutdown, func(e *power.Event) {
		mu.Lock()
		defer mu.Unlock()
		senders = append(senders, e.Args[0].(power.RelayMessage).Sender)
	})
	<-m.Active()

	first, err := NewSender(context.Background(), SenderOptions{URL: url}).Send(context.Background(), Query{Sender: "a"})
	require.NoError(t, err)
	second, err := NewSender(context.Background(), SenderOptions{URL: url}).Send(context.Background(), Query{Sender: "b"})
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	clk.Add(power.RelayQuietPeriod)
	require.Eventually(t, func() bool {
		delivered, err := NewSender(context.Background(), SenderOptions{URL: url}).Send(context.Background(), Query{Sender: "c"})
		return err == nil && delivered
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "c"}, senders)
}

type nopSource struct{}

func (nopSource) Start(power.Sink) error { return nil }
func (nopSource) Close() error           { return nil }
