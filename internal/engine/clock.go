package engine

import "time"

// Ticker is the tick source behind the countdown. The indirection exists so
// tests can drive virtual time through a channel instead of waiting on the
// wall clock.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a Ticker with the given period.
type TickerFactory func(d time.Duration) Ticker

type wallTicker struct {
	t *time.Ticker
}

func (w *wallTicker) C() <-chan time.Time { return w.t.C }
func (w *wallTicker) Stop()               { w.t.Stop() }

// NewWallTicker returns a Ticker backed by time.Ticker.
func NewWallTicker(d time.Duration) Ticker {
	return &wallTicker{t: time.NewTicker(d)}
}
