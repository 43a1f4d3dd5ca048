//go:build darwin

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/scienceol/powerwatch/internal/power"
)

var hidIdleTime = regexp.MustCompile(`"HIDIdleTime" = (\d+)`)

// darwinIdle reads HIDIdleTime from the IOHIDSystem registry entry.
type darwinIdle struct{}

func newIdleQuerier(context.Context) power.IdleQuerier {
	return darwinIdle{}
}

func (d darwinIdle) IdleState(threshold time.Duration) (power.IdleState, error) {
	idle, err := d.IdleTime()
	if err != nil {
		return power.IdleUnknown, err
	}
	return classify(idle, threshold), nil
}

func (darwinIdle) IdleTime() (time.Duration, error) {
	path, err := exec.LookPath("ioreg")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", power.ErrIdleUnsupported, err)
	}
	out, err := exec.Command(path, "-c", "IOHIDSystem", "-d", "4").Output()
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	return parseHIDIdleTime(out)
}

func parseHIDIdleTime(out []byte) (time.Duration, error) {
	m := hidIdleTime.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("%w: HIDIdleTime not reported", power.ErrIdleUnsupported)
	}
	ns, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
	}
	return time.Duration(ns).Truncate(time.Second), nil
}
