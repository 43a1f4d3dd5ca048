package power

import "context"

// Sink receives events from a platform Source. Deliver runs every
// listener for name synchronously and reports whether one of them called
// Event.PreventDefault.
type Sink interface {
	Deliver(name EventName, args ...any) bool
}

// Source is the platform power-event producer. It is created once, on
// activation, and lives until the Monitor is closed.
type Source interface {
	// Start directs every event the source produces to sink. Start must
	// not call sink synchronously.
	Start(sink Sink) error
	Close() error
}

// ShutdownListener is implemented by sources on platforms that can delay
// shutdown. The Monitor keeps it told whether anyone listens for shutdown.
type ShutdownListener interface {
	SetListeningForShutdown(listening bool)
}

// SourceFactory creates the platform Source.
type SourceFactory func(ctx context.Context) (Source, error)

// Recorder observes deliveries and interest pushes. Optional.
type Recorder interface {
	EventDelivered(name EventName, listeners int)
	ShutdownInterest(listening bool)
}
