package engine

import (
	"sync"
	"time"
)

// Scheduler runs fn every d until the returned cancel func is called.
// Cancel must be safe to call more than once.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
}

// WallClock is a Scheduler backed by time.Ticker.
type WallClock struct{}

// Every starts a ticker goroutine.
func (WallClock) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// Timer is a one-second resolution countdown. The expiry callback fires at
// most once per Start.
type Timer struct {
	mu        sync.Mutex
	sched     Scheduler
	remaining int
	running   bool
	onExpire  func()
	cancel    func()
}

// NewTimer creates a stopped timer driven by sched.
func NewTimer(sched Scheduler) *Timer {
	if sched == nil {
		sched = WallClock{}
	}
	return &Timer{sched: sched}
}

// Start begins counting down from durationSeconds. Calling Start on a running
// timer is a no-op.
//
// A non-positive duration expires at the next scheduling opportunity, which
// is the scheduler's first tick. Start itself never fires expiry.
func (t *Timer) Start(durationSeconds int, onExpire func()) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	t.remaining = durationSeconds
	t.running = true
	t.onExpire = onExpire
	t.mu.Unlock()

	cancel := t.sched.Every(time.Second, t.Tick)

	t.mu.Lock()
	// Expired or stopped before the scheduler handed back its cancel func.
	if !t.running {
		t.mu.Unlock()
		cancel()
		return
	}
	t.cancel = cancel
	t.mu.Unlock()
}

// Tick advances the countdown by one second.
func (t *Timer) Tick() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining > 0 {
		t.mu.Unlock()
		return
	}

	fire := t.onExpire
	cancel := t.halt()
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if fire != nil {
		fire()
	}
}

// Stop halts the countdown without firing expiry.
func (t *Timer) Stop() {
	t.mu.Lock()
	cancel := t.halt()
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Remaining returns the seconds left on the clock.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Running reports whether the countdown is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// halt must be called with mu held. It returns the scheduler cancel func so
// the caller can invoke it after unlocking.
func (t *Timer) halt() func() {
	t.running = false
	t.onExpire = nil
	cancel := t.cancel
	t.cancel = nil
	return cancel
}
