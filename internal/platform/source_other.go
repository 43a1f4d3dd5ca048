//go:build !linux && !windows

package platform

import (
	"context"

	"github.com/scienceol/powerwatch/internal/logging"
	"github.com/scienceol/powerwatch/internal/power"
)

// quietSource is used where no native power notifications are wired.
// Applications can still Emit events themselves.
type quietSource struct{}

func newSource(ctx context.Context) (power.Source, error) {
	logging.FromContext(ctx).Debug().Msg("no native power events on this platform")
	return quietSource{}, nil
}

func (quietSource) Start(power.Sink) error { return nil }
func (quietSource) Close() error           { return nil }
