package platform

// Inhibitor holds a logind delay lock so handlers can run before the
// system sleeps or shuts down.
type Inhibitor interface {
	// Start takes the lock. Returns an error if the platform mechanism
	// is unavailable; callers should treat this as non-fatal (log and
	// continue). Calling Start while held is a no-op.
	Start() error

	// Stop releases the lock. Safe to call multiple times.
	Stop() error
}
