package power

// interestCoordinator tells a veto-capable source whether anyone listens
// for shutdown. Every push sends count > 0, identical values included.
type interestCoordinator struct {
	target  ShutdownListener
	metrics Recorder
}

func (c *interestCoordinator) push(count int) {
	listening := count > 0
	c.target.SetListeningForShutdown(listening)
	if c.metrics != nil {
		c.metrics.ShutdownInterest(listening)
	}
}
