package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconnectorDelayBounds(t *testing.T) {
	t.Parallel()

	r := NewReconnector()
	prev := r.nextDelay()
	assert.GreaterOrEqual(t, prev, minBackoff)

	for i := 0; i < 20; i++ {
		d := r.nextDelay()
		assert.GreaterOrEqual(t, d, minBackoff)
		assert.LessOrEqual(t, d, maxBackoff)
	}

	r.Reset()
	assert.LessOrEqual(t, r.nextDelay(), minBackoff+minBackoff/4)
}

func TestReconnectorWaitStopsOnContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, NewReconnector().Wait(ctx))
}
