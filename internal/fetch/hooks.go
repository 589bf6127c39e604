package fetch

import "time"

// Hooks receives orchestration events. The server wires these to Prometheus;
// the CLI leaves the no-op default in place.
type Hooks interface {
	OnAttempt(identity string, attempt int)
	OnPlaceholder(identity string, attempt int)
	OnComplete(identity string, attempts int, duration time.Duration, err error)
}

type noopHooks struct{}

func (noopHooks) OnAttempt(string, int)                        {}
func (noopHooks) OnPlaceholder(string, int)                    {}
func (noopHooks) OnComplete(string, int, time.Duration, error) {}
