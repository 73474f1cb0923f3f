// Package clock abstracts wall-clock reads so that timers, expiry and
// sweeping can be driven deterministically in tests.
package clock

import "time"

// Clock is the time source injected into services
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C until Stop is called
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stopFunc() }

// Real returns a Clock backed by the time package
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stopFunc: t.Stop}
}
