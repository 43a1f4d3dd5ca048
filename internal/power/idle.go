package power

import (
	"errors"
	"time"
)

// IdleState classifies user inactivity as reported by the platform.
type IdleState string

const (
	IdleActive  IdleState = "active"
	IdleIdle    IdleState = "idle"
	IdleLocked  IdleState = "locked"
	IdleUnknown IdleState = "unknown"
)

// ErrIdleUnsupported is returned when no idle backend can answer.
var ErrIdleUnsupported = errors.New("idle detection not supported on this platform")

// IdleQuerier answers idle queries. Durations have second resolution.
type IdleQuerier interface {
	IdleState(threshold time.Duration) (IdleState, error)
	IdleTime() (time.Duration, error)
}

// SystemIdleState classifies the system as active, idle, locked or
// unknown, idle meaning no input for at least threshold. It does not
// depend on activation.
func (m *Monitor) SystemIdleState(threshold time.Duration) (IdleState, error) {
	if m.idle == nil {
		return IdleUnknown, ErrIdleUnsupported
	}
	return m.idle.IdleState(threshold)
}

// SystemIdleTime returns how long the user has been inactive.
func (m *Monitor) SystemIdleTime() (time.Duration, error) {
	if m.idle == nil {
		return 0, ErrIdleUnsupported
	}
	return m.idle.IdleTime()
}
