//go:build linux

package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/scienceol/powerwatch/internal/logging"
	"github.com/scienceol/powerwatch/internal/power"
)

const (
	mutterDest = "org.gnome.Mutter.IdleMonitor"
	mutterPath = "/org/gnome/Mutter/IdleMonitor/Core"

	screensaverDest = "org.freedesktop.ScreenSaver"
	screensaverPath = "/org/freedesktop/ScreenSaver"

	autoSessionPath = "/org/freedesktop/login1/session/auto"
)

// linuxIdle asks, in order, GNOME's idle monitor, the freedesktop
// screensaver and logind's idle hint.
type linuxIdle struct {
	log zerolog.Logger
}

func newIdleQuerier(ctx context.Context) power.IdleQuerier {
	return &linuxIdle{log: logging.FromContext(ctx).With().Str("component", "idle").Logger()}
}

func (l *linuxIdle) IdleState(threshold time.Duration) (power.IdleState, error) {
	if l.locked() {
		return power.IdleLocked, nil
	}
	idle, err := l.IdleTime()
	if err != nil {
		return power.IdleUnknown, err
	}
	return classify(idle, threshold), nil
}

func (l *linuxIdle) IdleTime() (time.Duration, error) {
	var lastErr error

	if session, err := dbus.SessionBus(); err == nil {
		var ms uint64
		err = session.Object(mutterDest, mutterPath).Call(mutterDest+".GetIdletime", 0).Store(&ms)
		if err == nil {
			return (time.Duration(ms) * time.Millisecond).Truncate(time.Second), nil
		}
		l.log.Debug().Err(err).Msg("mutter idle monitor unavailable")

		var secs uint32
		err = session.Object(screensaverDest, screensaverPath).Call(screensaverDest+".GetSessionIdleTime", 0).Store(&secs)
		if err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		l.log.Debug().Err(err).Msg("screensaver idle time unavailable")
		lastErr = err
	} else {
		lastErr = err
	}

	system, err := dbus.SystemBus()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", power.ErrIdleUnsupported, err)
	}
	obj := system.Object(login1Dest, autoSessionPath)

	hint, err := obj.GetProperty(login1Session + ".IdleHint")
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return 0, fmt.Errorf("%w: %w", power.ErrIdleUnsupported, lastErr)
	}
	if idle, _ := hint.Value().(bool); !idle {
		return 0, nil
	}

	since, err := obj.GetProperty(login1Session + ".IdleSinceHint")
	if err != nil {
		return 0, fmt.Errorf("read idle since hint: %w", err)
	}
	usec, _ := since.Value().(uint64)
	if usec == 0 {
		return 0, nil
	}
	elapsed := time.Since(time.UnixMicro(int64(usec)))
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed.Truncate(time.Second), nil
}

func (l *linuxIdle) locked() bool {
	system, err := dbus.SystemBus()
	if err == nil {
		v, err := system.Object(login1Dest, autoSessionPath).GetProperty(login1Session + ".LockedHint")
		if err == nil {
			locked, _ := v.Value().(bool)
			return locked
		}
	}

	session, err := dbus.SessionBus()
	if err != nil {
		return false
	}
	var active bool
	if err := session.Object(screensaverDest, screensaverPath).Call(screensaverDest+".GetActive", 0).Store(&active); err != nil {
		return false
	}
	return active
}
