//go:build linux

package platform

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/scienceol/powerwatch/internal/logging"
	"github.com/scienceol/powerwatch/internal/power"
)

const (
	login1Dest    = "org.freedesktop.login1"
	login1Path    = "/org/freedesktop/login1"
	login1Manager = "org.freedesktop.login1.Manager"
	login1Session = "org.freedesktop.login1.Session"

	upowerPath = "/org/freedesktop/UPower"
	propsIface = "org.freedesktop.DBus.Properties"
)

// logindSource turns logind and UPower signals into power events. It
// holds a sleep delay lock at all times and a shutdown delay lock while
// the application listens for shutdown.
type logindSource struct {
	log          zerolog.Logger
	conn         *dbus.Conn
	sessionPath  dbus.ObjectPath
	sleepLock    Inhibitor
	shutdownLock Inhibitor

	mu        sync.Mutex
	listening bool

	signals   chan *dbus.Signal
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ power.ShutdownListener = (*logindSource)(nil)

func newSource(ctx context.Context) (power.Source, error) {
	log := logging.FromContext(ctx).With().Str("component", "logind").Logger()

	conn, err := dbus.ConnectSystemBus(dbus.WithSignalHandler(dbus.NewSequentialSignalHandler()))
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	s := &logindSource{
		log:          log,
		conn:         conn,
		sleepLock:    newInhibitor("sleep", "Run suspend handlers"),
		shutdownLock: newInhibitor("shutdown", "Run shutdown handlers"),
		signals:      make(chan *dbus.Signal, 16),
		done:         make(chan struct{}),
	}

	var path dbus.ObjectPath
	err = conn.Object(login1Dest, login1Path).
		Call(login1Manager+".GetSessionByPID", 0, uint32(os.Getpid())).
		Store(&path)
	if err != nil {
		log.Debug().Err(err).Msg("not in a logind session, lock events unavailable")
	} else {
		s.sessionPath = path
	}

	return s, nil
}

func (s *logindSource) Start(sink power.Sink) error {
	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchObjectPath(login1Path),
			dbus.WithMatchInterface(login1Manager),
			dbus.WithMatchMember("PrepareForSleep"),
		},
		{
			dbus.WithMatchObjectPath(login1Path),
			dbus.WithMatchInterface(login1Manager),
			dbus.WithMatchMember("PrepareForShutdown"),
		},
		{
			dbus.WithMatchObjectPath(upowerPath),
			dbus.WithMatchInterface(propsIface),
			dbus.WithMatchMember("PropertiesChanged"),
		},
	}
	if s.sessionPath != "" {
		matches = append(matches, []dbus.MatchOption{
			dbus.WithMatchObjectPath(s.sessionPath),
			dbus.WithMatchInterface(login1Session),
		})
	}

	for _, m := range matches {
		if err := s.conn.AddMatchSignal(m...); err != nil {
			return fmt.Errorf("add signal match: %w", err)
		}
	}
	s.conn.Signal(s.signals)

	if err := s.sleepLock.Start(); err != nil {
		s.log.Warn().Err(err).Msg("sleep delay lock unavailable")
	}

	s.wg.Add(1)
	go s.loop(sink)

	return nil
}

func (s *logindSource) loop(sink power.Sink) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case sig, ok := <-s.signals:
			if !ok || sig == nil {
				return
			}
			s.dispatch(sink, sig)
		}
	}
}

func (s *logindSource) dispatch(sink power.Sink, sig *dbus.Signal) {
	switch sig.Name {
	case login1Manager + ".PrepareForSleep":
		start, ok := firstBool(sig.Body)
		if !ok {
			return
		}
		if start {
			sink.Deliver(power.EventSuspend)
			s.release(s.sleepLock)
			return
		}
		if err := s.sleepLock.Start(); err != nil {
			s.log.Warn().Err(err).Msg("sleep delay lock unavailable")
		}
		sink.Deliver(power.EventResume)

	case login1Manager + ".PrepareForShutdown":
		start, ok := firstBool(sig.Body)
		if !ok {
			return
		}
		if !start {
			// Shutdown was cancelled; take the lock back if still wanted.
			s.mu.Lock()
			listening := s.listening
			s.mu.Unlock()
			if listening {
				if err := s.shutdownLock.Start(); err != nil {
					s.log.Warn().Err(err).Msg("shutdown delay lock unavailable")
				}
			}
			return
		}
		if sink.Deliver(power.EventShutdown) {
			s.log.Info().Msg("shutdown delayed by listener")
			return
		}
		s.release(s.shutdownLock)

	case login1Session + ".Lock":
		if sig.Path == s.sessionPath {
			sink.Deliver(power.EventLockScreen)
		}

	case login1Session + ".Unlock":
		if sig.Path == s.sessionPath {
			sink.Deliver(power.EventUnlockScreen)
		}

	case propsIface + ".PropertiesChanged":
		if sig.Path != upowerPath || len(sig.Body) < 2 {
			return
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		v, ok := changed["OnBattery"]
		if !ok {
			return
		}
		onBattery, ok := v.Value().(bool)
		if !ok {
			return
		}
		if onBattery {
			sink.Deliver(power.EventOnBattery)
		} else {
			sink.Deliver(power.EventOnAC)
		}
	}
}

// SetListeningForShutdown holds the shutdown delay lock while listening.
func (s *logindSource) SetListeningForShutdown(listening bool) {
	s.mu.Lock()
	s.listening = listening
	s.mu.Unlock()

	if !listening {
		s.release(s.shutdownLock)
		return
	}
	if err := s.shutdownLock.Start(); err != nil {
		s.log.Warn().Err(err).Msg("shutdown delay lock unavailable")
	}
}

func (s *logindSource) release(lock Inhibitor) {
	if err := lock.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("release delay lock")
	}
}

func (s *logindSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.RemoveSignal(s.signals)
		}
		s.wg.Wait()

		err = multierr.Combine(s.sleepLock.Stop(), s.shutdownLock.Stop())
		if s.conn != nil {
			err = multierr.Append(err, s.conn.Close())
		}
	})
	return err
}

func firstBool(body []interface{}) (bool, bool) {
	if len(body) == 0 {
		return false, false
	}
	b, ok := body[0].(bool)
	return b, ok
}
