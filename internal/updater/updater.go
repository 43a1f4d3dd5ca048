package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/scienceol/powerwatch/internal/logging"
)

const timeout = 5 * time.Second

type versionResponse struct {
	Version  string            `json:"version"`
	Download map[string]string `json:"download"`
}

// UpdateInfo contains information about an available update.
type UpdateInfo struct {
	Latest      string // latest version (e.g. "0.2.0")
	DownloadURL string // platform-specific binary URL
}

// CheckForUpdate fetches the latest released version from checkURL and
// compares it with currentVersion. Returns nil if up-to-date or on any
// error; failures are logged at debug.
func CheckForUpdate(ctx context.Context, checkURL, currentVersion string) *UpdateInfo {
	if checkURL == "" {
		return nil
	}
	log := logging.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		log.Debug().Err(err).Msg("update check skipped")
		return nil
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("update check failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Msg("update check failed")
		return nil
	}

	var v versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		log.Debug().Err(err).Msg("update check returned garbage")
		return nil
	}

	if !isNewer(v.Version, currentVersion) {
		return nil
	}

	return &UpdateInfo{
		Latest:      strings.TrimPrefix(v.Version, "v"),
		DownloadURL: v.Download[runtime.GOOS+"-"+runtime.GOARCH],
	}
}

// isNewer returns true if remote is strictly newer than local.
// Versions are expected as "major.minor.patch" (e.g. "1.6.2").
func isNewer(remote, local string) bool {
	if remote == "" {
		return false
	}
	r, rErr := parseSemver(remote)
	l, lErr := parseSemver(local)
	if rErr != nil || lErr != nil {
		return strings.TrimPrefix(remote, "v") != strings.TrimPrefix(local, "v")
	}
	for i := 0; i < 3; i++ {
		if r[i] != l[i] {
			return r[i] > l[i]
		}
	}
	return false
}

func parseSemver(s string) ([3]int, error) {
	s = strings.TrimPrefix(s, "v")
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return [3]int{}, fmt.Errorf("invalid semver: %s", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return [3]int{}, err
		}
		v[i] = n
	}
	return v, nil
}
