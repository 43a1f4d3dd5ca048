//go:build !linux && !windows && !darwin

package platform

import (
	"context"
	"time"

	"github.com/scienceol/powerwatch/internal/power"
)

type unsupportedIdle struct{}

func newIdleQuerier(context.Context) power.IdleQuerier {
	return unsupportedIdle{}
}

func (unsupportedIdle) IdleState(time.Duration) (power.IdleState, error) {
	return power.IdleUnknown, power.ErrIdleUnsupported
}

func (unsupportedIdle) IdleTime() (time.Duration, error) {
	return 0, power.ErrIdleUnsupported
}
