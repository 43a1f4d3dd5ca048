package power

// EventName identifies a power event delivered by the Monitor.
type EventName string

// Events a platform source may produce. Availability depends on the host.
const (
	EventSuspend      EventName = "suspend"
	EventResume       EventName = "resume"
	EventShutdown     EventName = "shutdown"
	EventLockScreen   EventName = "lock-screen"
	EventUnlockScreen EventName = "unlock-screen"
	EventOnAC         EventName = "on-ac"
	EventOnBattery    EventName = "on-battery"
)

// Event is handed to every listener of a single delivery. Args are opaque
// context supplied by whoever emitted the event.
type Event struct {
	Name EventName
	Args []any

	prevented bool
}

// PreventDefault asks the emitter to skip its default follow-up action.
// For shutdown on Linux this keeps the delay inhibitor held so the
// application can finish exiting.
func (e *Event) PreventDefault() {
	e.prevented = true
}

// DefaultPrevented reports whether any listener called PreventDefault.
func (e *Event) DefaultPrevented() bool {
	return e.prevented
}

// Listener receives events. Listeners run synchronously in registration order.
type Listener func(e *Event)
