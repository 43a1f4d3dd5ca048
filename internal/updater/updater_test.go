package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remote, local string
		want          bool
	}{
		{"0.2.0", "0.1.0", true},
		{"v1.0.0", "0.9.9", true},
		{"0.1.0", "0.1.0", false},
		{"0.1.0", "0.2.0", false},
		{"1.10.0", "1.9.3", true},
		{"nightly", "0.1.0", true},
		{"v0.1.0", "0.1.0", false},
		{"", "0.1.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isNewer(tt.remote, tt.local), "%s vs %s", tt.remote, tt.local)
	}
}

func serve(t *testing.T, status int, body string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCheckForUpdate(t *testing.T) {
	t.Parallel()

	platform := runtime.GOOS + "-" + runtime.GOARCH
	url := serve(t, http.StatusOK, `{"version":"v0.3.0","download":{"`+platform+`":"https://dl/powerwatch"}}`)

	info := CheckForUpdate(context.Background(), url, "0.1.0")
	require.NotNil(t, info)
	assert.Equal(t, "0.3.0", info.Latest)
	assert.Equal(t, "https://dl/powerwatch", info.DownloadURL)

	assert.Nil(t, CheckForUpdate(context.Background(), url, "0.3.0"))
}

func TestCheckForUpdateIsBestEffort(t *testing.T) {
	t.Parallel()

	assert.Nil(t, CheckForUpdate(context.Background(), serve(t, http.StatusInternalServerError, ""), "0.1.0"))
	assert.Nil(t, CheckForUpdate(context.Background(), serve(t, http.StatusOK, "not json"), "0.1.0"))
	assert.Nil(t, CheckForUpdate(context.Background(), "://bad", "0.1.0"))
	assert.Nil(t, CheckForUpdate(context.Background(), "", "0.1.0"))
}
