package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Timer decrements remaining seconds once per second while running and calls
// onExpire exactly once when the count crosses zero. It never extrapolates
// elapsed wall-clock time itself: on resume it restarts from whatever value
// the pause/resume reconciliation installed, so OS-level suspension cannot
// be double-counted.
type Timer struct {
	mu        sync.Mutex
	remaining int
	running   bool
	expired   bool
	factory   TickerFactory
	onTick    func(remaining int)
	onExpire  func()
	stop      chan struct{}
	log       zerolog.Logger
}

// NewTimer creates a stopped Timer using factory as its tick source.
func NewTimer(factory TickerFactory, log zerolog.Logger) *Timer {
	return &Timer{
		factory: factory,
		log:     log.With().Str("component", "timer").Logger(),
	}
}

// Start installs the callbacks and begins ticking from remaining seconds.
// If remaining is already zero or negative (e.g. after a slow resume
// round-trip), onExpire fires immediately instead of waiting a full second.
func (t *Timer) Start(remaining int, onTick func(int), onExpire func()) {
	t.mu.Lock()
	t.onTick = onTick
	t.onExpire = onExpire
	t.mu.Unlock()
	t.Resume(remaining)
}

// Resume restarts ticking from the given remaining seconds. It is a no-op
// when the timer already expired.
func (t *Timer) Resume(remaining int) {
	t.mu.Lock()
	if t.expired || t.running {
		t.mu.Unlock()
		return
	}
	if remaining <= 0 {
		t.remaining = 0
		t.expired = true
		expire := t.onExpire
		t.mu.Unlock()
		t.log.Debug().Msg("Started with no time left, expiring immediately")
		if expire != nil {
			// Fresh goroutine: callers of Start/Resume routinely hold
			// their own locks, which the expiry handler re-acquires.
			go expire()
		}
		return
	}
	t.remaining = remaining
	t.running = true
	t.stop = make(chan struct{})
	// Create the ticker before returning so callers observe the new tick
	// source as soon as Start/Resume completes.
	ticker := t.factory(time.Second)
	go t.loop(t.stop, ticker)
	t.mu.Unlock()
}

// Pause stops ticking without touching the remaining count.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
}

// Stop permanently halts the timer; no further ticks or expiry will fire.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
	t.expired = true
}

// Remaining returns the current remaining seconds.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// halt stops the tick loop. Caller must hold t.mu.
func (t *Timer) halt() {
	if t.running {
		close(t.stop)
		t.running = false
	}
}

func (t *Timer) loop(stop chan struct{}, ticker Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			t.mu.Lock()
			if !t.running || t.expired {
				t.mu.Unlock()
				return
			}
			t.remaining--
			remaining := t.remaining
			tick := t.onTick
			var expire func()
			if remaining <= 0 {
				t.remaining = 0
				t.expired = true
				t.running = false
				expire = t.onExpire
			}
			t.mu.Unlock()

			// Callbacks run outside the lock so they may re-enter the timer.
			if tick != nil {
				tick(remaining)
			}
			if expire != nil {
				t.log.Info().Msg("Countdown reached zero")
				expire()
				return
			}
		}
	}
}
