package power

import "sync"

// Readiness reports when the host application has finished starting.
// Ready returns a channel that is closed once the application is ready;
// calling it after readiness returns an already closed channel.
type Readiness interface {
	Ready() <-chan struct{}
}

// ReadySignal is a Readiness fired once by the application.
type ReadySignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewReadySignal returns a signal that is not yet ready.
func NewReadySignal() *ReadySignal {
	return &ReadySignal{ch: make(chan struct{})}
}

// Ready implements Readiness.
func (s *ReadySignal) Ready() <-chan struct{} {
	return s.ch
}

// Fire marks the application ready. Safe to call more than once.
func (s *ReadySignal) Fire() {
	s.once.Do(func() {
		close(s.ch)
	})
}

// IsReady reports whether Fire has been called.
func (s *ReadySignal) IsReady() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// AlreadyReady is a Readiness for hosts that are ready before the
// Monitor is constructed.
var AlreadyReady Readiness = readyNow{}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type readyNow struct{}

func (readyNow) Ready() <-chan struct{} { return closedCh }
