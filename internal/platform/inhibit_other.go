//go:build !linux

package platform

type noopInhibitor struct{}

func newInhibitor(what, why string) Inhibitor {
	return noopInhibitor{}
}

func (noopInhibitor) Start() error { return nil }
func (noopInhibitor) Stop() error  { return nil }
