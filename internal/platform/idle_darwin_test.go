//go:build darwin

package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scienceol/powerwatch/internal/power"
)

func TestParseHIDIdleTime(t *testing.T) {
	t.Parallel()

	out := []byte(`    | |   "HIDIdleTime" = 93512345678
    | |   "HIDParameters" = {}`)
	got, err := parseHIDIdleTime(out)
	require.NoError(t, err)
	assert.Equal(t, 93*time.Second, got)

	_, err = parseHIDIdleTime([]byte("nothing here"))
	assert.ErrorIs(t, err, power.ErrIdleUnsupported)
}
