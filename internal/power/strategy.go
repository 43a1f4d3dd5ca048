package power

import (
	"fmt"
	"runtime"
)

// ShutdownStrategy selects how shutdown is coordinated with the platform.
type ShutdownStrategy int

const (
	// StrategyAuto picks a strategy from runtime.GOOS.
	StrategyAuto ShutdownStrategy = iota
	// StrategyNone installs no coordinator; shutdown events come only
	// from the source itself.
	StrategyNone
	// StrategyRelay turns messages on a RelayChannel into debounced
	// shutdown events. Used on Windows, where the end-session query
	// reaches other processes first and is forwarded to us.
	StrategyRelay
	// StrategyInterest pushes shutdown listener interest to the source.
	// Used on Linux, where logind lets us hold a delay lock.
	StrategyInterest
)

func (s ShutdownStrategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyNone:
		return "none"
	case StrategyRelay:
		return "relay"
	case StrategyInterest:
		return "interest"
	default:
		return "unknown"
	}
}

func strategyFor(goos string) ShutdownStrategy {
	switch goos {
	case "windows":
		return StrategyRelay
	case "linux":
		return StrategyInterest
	default:
		return StrategyNone
	}
}

func (s ShutdownStrategy) resolve() ShutdownStrategy {
	if s == StrategyAuto {
		return strategyFor(runtime.GOOS)
	}
	return s
}

// ParseStrategy converts a strategy name as printed by String.
func ParseStrategy(name string) (ShutdownStrategy, error) {
	for _, s := range []ShutdownStrategy{StrategyAuto, StrategyNone, StrategyRelay, StrategyInterest} {
		if s.String() == name {
			return s, nil
		}
	}
	return StrategyAuto, fmt.Errorf("unknown shutdown strategy %q", name)
}
