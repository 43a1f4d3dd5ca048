//go:build windows

package platform

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"

	"github.com/scienceol/powerwatch/internal/logging"
	"github.com/scienceol/powerwatch/internal/power"
)

var (
	powrprof = windows.NewLazySystemDLL("powrprof.dll")

	procPowerRegisterSuspendResumeNotification   = powrprof.NewProc("PowerRegisterSuspendResumeNotification")
	procPowerUnregisterSuspendResumeNotification = powrprof.NewProc("PowerUnregisterSuspendResumeNotification")
)

const (
	deviceNotifyCallback = 2

	pbtAPMSuspend         = 0x4
	pbtAPMResumeAutomatic = 0x12
)

type deviceNotifySubscribeParameters struct {
	callback uintptr
	context  uintptr
}

// windowsSource reports suspend and resume. Shutdown reaches Windows
// applications as an end-session query to their windows, so it arrives
// through the relay instead.
type windowsSource struct {
	log zerolog.Logger

	mu     sync.Mutex
	sink   power.Sink
	params *deviceNotifySubscribeParameters
	handle uintptr
}

func newSource(ctx context.Context) (power.Source, error) {
	if err := procPowerRegisterSuspendResumeNotification.Find(); err != nil {
		return nil, fmt.Errorf("suspend notifications unavailable: %w", err)
	}
	return &windowsSource{
		log: logging.FromContext(ctx).With().Str("component", "powrprof").Logger(),
	}, nil
}

func (s *windowsSource) Start(sink power.Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sink = sink
	s.params = &deviceNotifySubscribeParameters{callback: windows.NewCallback(s.notify)}

	r, _, _ := procPowerRegisterSuspendResumeNotification.Call(
		deviceNotifyCallback,
		uintptr(unsafe.Pointer(s.params)),
		uintptr(unsafe.Pointer(&s.handle)),
	)
	if r != 0 {
		return fmt.Errorf("PowerRegisterSuspendResumeNotification: %w", syscall.Errno(r))
	}
	return nil
}

// notify runs on a system thread. Suspend listeners run before it
// returns, which is before the machine sleeps.
func (s *windowsSource) notify(_, typ, _ uintptr) uintptr {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink == nil {
		return 0
	}

	switch typ {
	case pbtAPMSuspend:
		sink.Deliver(power.EventSuspend)
	case pbtAPMResumeAutomatic:
		sink.Deliver(power.EventResume)
	}
	return 0
}

func (s *windowsSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sink = nil
	if s.handle == 0 {
		return nil
	}
	r, _, _ := procPowerUnregisterSuspendResumeNotification.Call(s.handle)
	s.handle = 0
	if r != 0 {
		return fmt.Errorf("PowerUnregisterSuspendResumeNotification: %w", syscall.Errno(r))
	}
	return nil
}
