package power

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayHarness struct {
	m     *Monitor
	relay *fakeRelay
	clock *clock.Mock

	mu       sync.Mutex
	received []RelayMessage
}

func newRelayHarness(t *testing.T) *relayHarness {
	t.Helper()

	h := &relayHarness{relay: &fakeRelay{}, clock: clock.NewMock()}
	h.m = New(context.Background(), Options{
		Factory:  (&countingFactory{source: &fakeSource{}}).create,
		Relay:    h.relay,
		Strategy: StrategyRelay,
		Clock:    h.clock,
	})
	t.Cleanup(func() { _ = h.m.Close() })

	h.m.On(EventShutdown, func(e *Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.received = append(h.received, e.Args[0].(RelayMessage))
	})
	waitActive(t, h.m)
	require.Equal(t, 1, h.relay.waiting())
	return h
}

func (h *relayHarness) shutdowns() []RelayMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]RelayMessage(nil), h.received...)
}

func (h *relayHarness) waitRearmed(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return h.relay.waiting() == 1 }, time.Second, time.Millisecond)
}

func TestRelayDeliversShutdownWithContext(t *testing.T) {
	t.Parallel()

	h := newRelayHarness(t)

	msg := RelayMessage{ID: "q1", Sender: "renderer-1", Reason: "logoff"}
	require.True(t, h.relay.send(msg))

	assert.Equal(t, []RelayMessage{msg}, h.shutdowns())
}

func TestRelayCollapsesMessagesWithinQuietPeriod(t *testing.T) {
	t.Parallel()

	h := newRelayHarness(t)

	require.True(t, h.relay.send(RelayMessage{Sender: "renderer-1"}))
	h.clock.Add(500 * time.Millisecond)
	assert.False(t, h.relay.send(RelayMessage{Sender: "renderer-2"}))

	assert.Len(t, h.shutdowns(), 1)
	assert.Equal(t, "renderer-1", h.shutdowns()[0].Sender)
}

func TestRelayDeliversMessagesBeyondQuietPeriod(t *testing.T) {
	t.Parallel()

	h := newRelayHarness(t)

	require.True(t, h.relay.send(RelayMessage{Sender: "renderer-1"}))
	h.clock.Add(1500 * time.Millisecond)
	h.waitRearmed(t)
	require.True(t, h.relay.send(RelayMessage{Sender: "renderer-2"}))

	got := h.shutdowns()
	require.Len(t, got, 2)
	assert.Equal(t, "renderer-2", got[1].Sender)
}

func TestRelayRearmsWithoutFurtherMessages(t *testing.T) {
	t.Parallel()

	h := newRelayHarness(t)

	require.True(t, h.relay.send(RelayMessage{}))
	assert.Zero(t, h.relay.waiting())

	h.clock.Add(RelayQuietPeriod - time.Millisecond)
	assert.Zero(t, h.relay.waiting())

	h.clock.Add(time.Millisecond)
	h.waitRearmed(t)
	assert.True(t, h.m.relayer.isArmed())
}

func TestRelayPendingRearmDroppedOnClose(t *testing.T) {
	t.Parallel()

	h := newRelayHarness(t)

	require.True(t, h.relay.send(RelayMessage{}))
	require.NoError(t, h.m.Close())
	h.clock.Add(2 * RelayQuietPeriod)

	require.Never(t, func() bool { return h.relay.waiting() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRelayStrategyWithoutChannelStillActivates(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), Options{
		Factory:  (&countingFactory{source: &fakeSource{}}).create,
		Strategy: StrategyRelay,
	})
	defer m.Close()

	m.On(EventShutdown, func(*Event) {})
	waitActive(t, m)
}
