//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

type linuxInhibitor struct {
	what string
	why  string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// newInhibitor returns a delay lock for what ("sleep" or "shutdown").
func newInhibitor(what, why string) Inhibitor {
	return &linuxInhibitor{what: what, why: why}
}

func (l *linuxInhibitor) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		return nil // already held
	}

	path, err := exec.LookPath("systemd-inhibit")
	if err != nil {
		return fmt.Errorf("systemd-inhibit not found: %w", err)
	}

	// The lock lives as long as the child does.
	l.cmd = exec.Command(path,
		"--what="+l.what,
		"--mode=delay",
		"--who=powerwatch",
		"--why="+l.why,
		"sleep", "infinity",
	)
	// Kernel sends SIGTERM to child when parent dies, so the lock never
	// outlives us.
	l.cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: unix.SIGTERM}

	if err := l.cmd.Start(); err != nil {
		l.cmd = nil
		return fmt.Errorf("failed to start systemd-inhibit: %w", err)
	}

	go l.cmd.Wait()

	return nil
}

func (l *linuxInhibitor) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd == nil || l.cmd.Process == nil {
		return nil
	}

	err := l.cmd.Process.Kill()
	l.cmd = nil
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("release %s lock: %w", l.what, err)
	}
	return nil
}
