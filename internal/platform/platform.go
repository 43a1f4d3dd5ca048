// Package platform provides the operating-system side of powerwatch: the
// power event sources and idle queries consumed by package power.
//
// Linux talks to logind and UPower over D-Bus, Windows registers for
// suspend/resume callbacks with powrprof.dll, and other systems get a
// source that never fires.
package platform

import (
	"context"
	"time"

	"github.com/scienceol/powerwatch/internal/power"
)

// NewSource creates the power source for the running OS. It has the
// signature of power.SourceFactory.
func NewSource(ctx context.Context) (power.Source, error) {
	return newSource(ctx)
}

// NewIdleQuerier returns the idle backend for the running OS.
func NewIdleQuerier(ctx context.Context) power.IdleQuerier {
	return newIdleQuerier(ctx)
}

// classify maps a raw idle duration onto active or idle.
func classify(idle, threshold time.Duration) power.IdleState {
	if idle >= threshold {
		return power.IdleIdle
	}
	return power.IdleActive
}
