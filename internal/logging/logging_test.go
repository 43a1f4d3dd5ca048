package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", Writer: buf})
	require.NoError(t, err)

	log.Debug().Str("event", "suspend").Msg("delivered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "delivered", entry["message"])
	require.Equal(t, "suspend", entry["event"])
	require.Equal(t, "debug", entry["level"])
}

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "warn", Writer: buf})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	require.Empty(t, strings.TrimSpace(buf.String()))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestWithComponentAddsField(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Writer: buf})
	require.NoError(t, err)

	ctx := WithComponent(WithContext(context.Background(), log), "relay")
	FromContext(ctx).Info().Msg("listening")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "relay", entry["component"])
}

func TestFromContextWithoutLoggerIsDisabled(t *testing.T) {
	t.Parallel()

	log := FromContext(context.Background())
	require.NotNil(t, log)
	log.Info().Msg("nowhere")
}
