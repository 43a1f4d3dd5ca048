package power

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// RelayQuietPeriod is how long the relay coordinator waits after a
// forwarded shutdown query before listening for the next one.
const RelayQuietPeriod = 1000 * time.Millisecond

// RelayMessage is a shutdown query forwarded by another process.
type RelayMessage struct {
	ID       string
	Sender   string
	Reason   string
	Received time.Time
}

// RelayChannel delivers forwarded shutdown queries. A handler passed to
// Once fires at most once and must be registered again for the next
// message; messages arriving with no handler registered are dropped.
type RelayChannel interface {
	Once(handler func(RelayMessage))
}

// relayCoordinator turns relay messages into shutdown events. Several
// senders may forward the same query at nearly the same time, so after
// each delivery the handler is re-registered only once the quiet period
// has passed.
type relayCoordinator struct {
	relay   RelayChannel
	clock   clock.Clock
	log     zerolog.Logger
	deliver func(RelayMessage)

	mu      sync.Mutex
	armed   bool
	timer   *clock.Timer
	stopped bool
}

func newRelayCoordinator(relay RelayChannel, clk clock.Clock, log zerolog.Logger, deliver func(RelayMessage)) *relayCoordinator {
	return &relayCoordinator{
		relay:   relay,
		clock:   clk,
		log:     log,
		deliver: deliver,
	}
}

func (c *relayCoordinator) arm() {
	c.mu.Lock()
	if c.stopped || c.armed {
		c.mu.Unlock()
		return
	}
	c.armed = true
	c.timer = nil
	c.mu.Unlock()

	c.relay.Once(c.handle)
}

func (c *relayCoordinator) handle(msg RelayMessage) {
	c.mu.Lock()
	c.armed = false
	stopped := c.stopped
	c.mu.Unlock()

	if stopped {
		return
	}

	c.log.Debug().Str("sender", msg.Sender).Str("id", msg.ID).Msg("relayed shutdown query")
	c.deliver(msg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.timer = c.clock.AfterFunc(RelayQuietPeriod, c.arm)
	}
}

func (c *relayCoordinator) isArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

func (c *relayCoordinator) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
