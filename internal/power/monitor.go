// Package power bridges platform power notifications into an application
// event stream. The platform source is created lazily: only after the host
// application is ready and someone has attached a listener.
package power

import (
	"context"
	"errors"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/scienceol/powerwatch/internal/logging"
)

type activationState int

const (
	stateDormant activationState = iota
	stateAwaitingReadiness
	stateActive
)

func (s activationState) String() string {
	switch s {
	case stateDormant:
		return "dormant"
	case stateAwaitingReadiness:
		return "awaiting-readiness"
	case stateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Options configures a Monitor.
type Options struct {
	// Ready gates activation. Nil means AlreadyReady.
	Ready Readiness
	// Factory creates the platform source on activation.
	Factory SourceFactory
	// Idle answers idle queries.
	Idle IdleQuerier
	// Relay carries forwarded shutdown queries for StrategyRelay.
	Relay    RelayChannel
	Strategy ShutdownStrategy
	// Clock drives the relay quiet period. Nil means the wall clock.
	Clock   clock.Clock
	Metrics Recorder
}

// Monitor is the event bridge between a platform Source and application
// listeners.
type Monitor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	ready    Readiness
	factory  SourceFactory
	idle     IdleQuerier
	relay    RelayChannel
	strategy ShutdownStrategy
	clock    clock.Clock
	metrics  Recorder

	mu       sync.Mutex
	reg      registry
	state    activationState
	source   Source
	interest *interestCoordinator
	relayer  *relayCoordinator
	closed   bool

	active    chan struct{}
	closeOnce sync.Once
}

// New creates a dormant Monitor. Nothing touches the platform until the
// first listener is attached and opts.Ready fires.
func New(ctx context.Context, opts Options) *Monitor {
	ctx, cancel := context.WithCancel(ctx)

	m := &Monitor{
		ctx:      ctx,
		cancel:   cancel,
		log:      logging.FromContext(ctx).With().Str("component", "power").Logger(),
		ready:    opts.Ready,
		factory:  opts.Factory,
		idle:     opts.Idle,
		relay:    opts.Relay,
		strategy: opts.Strategy.resolve(),
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		reg:      newRegistry(),
		active:   make(chan struct{}),
	}
	if m.ready == nil {
		m.ready = AlreadyReady
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	return m
}

// Subscription is returned by On and Once.
type Subscription struct {
	m    *Monitor
	name EventName
	id   uint64
	once sync.Once
}

// Unsubscribe detaches the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.m == nil {
		return
	}
	s.once.Do(func() {
		s.m.detach(s.name, s.id)
	})
}

// On attaches l to name. The first attachment of any name starts activation.
func (m *Monitor) On(name EventName, l Listener) *Subscription {
	return m.attach(name, l, false)
}

// Once attaches l for a single delivery of name.
func (m *Monitor) Once(name EventName, l Listener) *Subscription {
	return m.attach(name, l, true)
}

func (m *Monitor) attach(name EventName, l Listener, once bool) *Subscription {
	if l == nil {
		return &Subscription{}
	}

	m.mu.Lock()
	id := m.reg.add(name, l, once)
	m.pushInterestLocked(name)
	start := m.beginActivationLocked()
	m.mu.Unlock()

	if start {
		go m.activate()
	}
	return &Subscription{m: m, name: name, id: id}
}

func (m *Monitor) detach(name EventName, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reg.remove(name, id) {
		m.pushInterestLocked(name)
	}
}

// RemoveAllListeners detaches every listener of name.
func (m *Monitor) RemoveAllListeners(name EventName) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reg.removeAll(name) > 0 {
		m.pushInterestLocked(name)
	}
}

// ListenerCount returns the number of listeners attached to name.
func (m *Monitor) ListenerCount(name EventName) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.count(name)
}

// Emit delivers name to its listeners synchronously, in attachment order.
// It reports whether a listener called Event.PreventDefault.
func (m *Monitor) Emit(name EventName, args ...any) bool {
	m.mu.Lock()
	entries := m.reg.snapshot(name)
	for _, e := range entries {
		if e.once && m.reg.remove(name, e.id) {
			m.pushInterestLocked(name)
		}
	}
	m.mu.Unlock()

	ev := &Event{Name: name, Args: args}
	for _, e := range entries {
		e.listener(ev)
	}

	if m.metrics != nil {
		m.metrics.EventDelivered(name, len(entries))
	}
	return ev.DefaultPrevented()
}

// Active returns a channel closed once the platform source is running.
func (m *Monitor) Active() <-chan struct{} {
	return m.active
}

// State reports the activation phase: "dormant", "awaiting-readiness" or
// "active".
func (m *Monitor) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.String()
}

// Close releases the platform source and drops any pending activation or
// relay re-arm. It is meant for process exit.
func (m *Monitor) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.cancel()

		m.mu.Lock()
		m.closed = true
		src := m.source
		relayer := m.relayer
		m.mu.Unlock()

		if relayer != nil {
			relayer.stop()
		}
		if src != nil {
			err = src.Close()
		}
	})
	return err
}

// beginActivationLocked moves dormant to awaiting-readiness. It reports
// true exactly once per Monitor.
func (m *Monitor) beginActivationLocked() bool {
	if m.state != stateDormant || m.closed {
		return false
	}
	m.state = stateAwaitingReadiness
	return true
}

func (m *Monitor) activate() {
	m.log.Debug().Msg("activation waiting for application readiness")

	select {
	case <-m.ready.Ready():
	case <-m.ctx.Done():
		return
	}
	if m.ctx.Err() != nil {
		return
	}

	if m.factory == nil {
		m.log.Error().Err(errNoFactory).Msg("activation failed")
		return
	}

	src, err := m.factory(m.ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("create power source")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		_ = src.Close()
		return
	}

	// Events the source produces while we still hold the lock wait for
	// the coordinator to be installed.
	if err := src.Start(bridgeSink{m: m}); err != nil {
		m.log.Error().Err(err).Msg("start power source")
		_ = src.Close()
		return
	}

	m.source = src
	m.state = stateActive
	m.installCoordinatorLocked(src)
	close(m.active)

	m.log.Info().Str("strategy", m.strategy.String()).Msg("power monitor active")
}

func (m *Monitor) installCoordinatorLocked(src Source) {
	switch m.strategy {
	case StrategyInterest:
		target, ok := src.(ShutdownListener)
		if !ok {
			m.log.Debug().Msg("power source cannot delay shutdown")
			return
		}
		m.interest = &interestCoordinator{target: target, metrics: m.metrics}
		m.interest.push(m.reg.count(EventShutdown))
	case StrategyRelay:
		if m.relay == nil {
			m.log.Warn().Msg("relay strategy selected without a relay channel")
			return
		}
		m.relayer = newRelayCoordinator(m.relay, m.clock, m.log, func(msg RelayMessage) {
			m.Emit(EventShutdown, msg)
		})
		m.relayer.arm()
	}
}

func (m *Monitor) pushInterestLocked(name EventName) {
	if name != EventShutdown || m.interest == nil {
		return
	}
	m.interest.push(m.reg.count(EventShutdown))
}

// bridgeSink is the explicit forwarding path from the platform source
// into the Monitor's own delivery.
type bridgeSink struct {
	m *Monitor
}

func (s bridgeSink) Deliver(name EventName, args ...any) bool {
	return s.m.Emit(name, args...)
}

var errNoFactory = errors.New("no power source factory configured")
