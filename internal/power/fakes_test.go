package power

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

type fakeSource struct {
	mu     sync.Mutex
	sink   Sink
	closed int
}

func (s *fakeSource) Start(sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// emit plays the platform producing an event.
func (s *fakeSource) emit(name EventName, args ...any) bool {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	return sink.Deliver(name, args...)
}

// vetoSource is a source on a platform that can delay shutdown.
type vetoSource struct {
	fakeSource

	pushMu sync.Mutex
	pushes []bool
}

func (s *vetoSource) SetListeningForShutdown(listening bool) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	s.pushes = append(s.pushes, listening)
}

func (s *vetoSource) pushed() []bool {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	return append([]bool(nil), s.pushes...)
}

type countingFactory struct {
	mu     sync.Mutex
	calls  int
	source Source
	err    error
}

func (f *countingFactory) create(context.Context) (Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.source, nil
}

func (f *countingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRelay struct {
	mu       sync.Mutex
	handlers []func(RelayMessage)
}

func (r *fakeRelay) Once(handler func(RelayMessage)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// send forwards msg and reports whether a handler consumed it.
func (r *fakeRelay) send(msg RelayMessage) bool {
	r.mu.Lock()
	handlers := r.handlers
	r.handlers = nil
	r.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
	return len(handlers) > 0
}

func (r *fakeRelay) waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

type mockIdle struct {
	mock.Mock
}

func (m *mockIdle) IdleState(threshold time.Duration) (IdleState, error) {
	args := m.Called(threshold)
	return args.Get(0).(IdleState), args.Error(1)
}

func (m *mockIdle) IdleTime() (time.Duration, error) {
	args := m.Called()
	return args.Get(0).(time.Duration), args.Error(1)
}

type recordingMetrics struct {
	mu        sync.Mutex
	delivered map[EventName]int
	interest  []bool
}

func (r *recordingMetrics) EventDelivered(name EventName, listeners int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delivered == nil {
		r.delivered = make(map[EventName]int)
	}
	r.delivered[name]++
}

func (r *recordingMetrics) ShutdownInterest(listening bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interest = append(r.interest, listening)
}

func waitActive(t *testing.T, m *Monitor) {
	t.Helper()
	select {
	case <-m.Active():
	case <-time.After(2 * time.Second):
		t.Fatalf("monitor did not activate, state %s", m.currentState())
	}
}

func (m *Monitor) currentState() activationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
