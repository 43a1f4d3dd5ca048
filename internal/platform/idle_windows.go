//go:build windows

package platform

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/scienceol/powerwatch/internal/power"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procOpenInputDesktop = user32.NewProc("OpenInputDesktop")
	procSwitchDesktop    = user32.NewProc("SwitchDesktop")
	procCloseDesktop     = user32.NewProc("CloseDesktop")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

const desktopSwitchDesktop = 0x0100

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

type windowsIdle struct{}

func newIdleQuerier(context.Context) power.IdleQuerier {
	return windowsIdle{}
}

func (w windowsIdle) IdleState(threshold time.Duration) (power.IdleState, error) {
	if workstationLocked() {
		return power.IdleLocked, nil
	}
	idle, err := w.IdleTime()
	if err != nil {
		return power.IdleUnknown, err
	}
	return classify(idle, threshold), nil
}

func (windowsIdle) IdleTime() (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	r, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if r == 0 {
		return 0, fmt.Errorf("GetLastInputInfo: %w", err)
	}
	now, _, _ := procGetTickCount.Call()
	// Both are 32-bit millisecond tick counts; unsigned subtraction
	// handles wraparound.
	elapsed := uint32(now) - info.dwTime
	return (time.Duration(elapsed) * time.Millisecond).Truncate(time.Second), nil
}

// workstationLocked reports whether the input desktop is not the user's,
// which is the case on the lock screen.
func workstationLocked() bool {
	h, _, _ := procOpenInputDesktop.Call(0, 0, desktopSwitchDesktop)
	if h == 0 {
		return true
	}
	defer procCloseDesktop.Call(h)

	r, _, _ := procSwitchDesktop.Call(h)
	return r == 0
}
