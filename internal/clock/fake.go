package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at initial. Time only moves on Advance or Set.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial.UTC()}
}

// FakeClock is a manually driven Clock. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*fakeTicker
}

type fakeTicker struct {
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

// Now returns the fake time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker that fires as Advance passes each interval.
// Like time.Ticker, C has capacity 1 and ticks are dropped if not consumed.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ft := &fakeTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     c.current.Add(d),
	}
	c.tickers = append(c.tickers, ft)
	return &Ticker{
		C: ft.ch,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ft.stopped = true
		},
	}
}

// Advance moves the clock forward by d and fires due tickers
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(c.current.Add(d))
}

// Set jumps the clock to t. Moving backwards does not fire tickers.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(t.UTC())
}

func (c *FakeClock) setLocked(t time.Time) {
	c.current = t

	live := c.tickers[:0]
	for _, ft := range c.tickers {
		if ft.stopped {
			continue
		}
		for !ft.next.After(t) {
			select {
			case ft.ch <- ft.next:
			default:
			}
			ft.next = ft.next.Add(ft.interval)
		}
		live = append(live, ft)
	}
	c.tickers = live
}
