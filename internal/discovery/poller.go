// Package discovery polls for a collaborator that registers itself
// asynchronously, such as the repository bridge.
package discovery

import (
	"sync"
	"time"
)

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests inject a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock schedules with the time package.
type RealClock struct{}

// AfterFunc wraps time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is the poller state.
type State int

const (
	// Idle means no poll is scheduled.
	Idle State = iota
	// Polling means a timer is pending.
	Polling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	default:
		return "unknown"
	}
}

// Poller runs a check on a fixed interval until it succeeds or the attempt
// budget is spent. It moves Idle -> Polling on Start and back to Idle on
// success, exhaustion or Stop.
type Poller struct {
	clock       Clock
	interval    time.Duration
	maxAttempts int

	mu       sync.Mutex
	state    State
	timer    Timer
	attempts int
	gen      int
}

// NewPoller creates an idle poller. maxAttempts <= 0 polls until Stop.
func NewPoller(clock Clock, interval time.Duration, maxAttempts int) *Poller {
	if clock == nil {
		clock = RealClock{}
	}
	return &Poller{clock: clock, interval: interval, maxAttempts: maxAttempts}
}

// Start begins polling. check runs on each tick; when it returns true,
// onReady is called once and the poller goes idle. Start returns false
// without changing anything if the poller is already polling.
func (p *Poller) Start(check func() bool, onReady func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Polling {
		return false
	}
	p.state = Polling
	p.attempts = 0
	p.gen++
	p.schedule(p.gen, check, onReady)
	return true
}

// schedule must be called with mu held.
func (p *Poller) schedule(gen int, check func() bool, onReady func()) {
	p.timer = p.clock.AfterFunc(p.interval, func() {
		p.tick(gen, check, onReady)
	})
}

func (p *Poller) tick(gen int, check func() bool, onReady func()) {
	p.mu.Lock()
	if p.state != Polling || p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.attempts++
	p.mu.Unlock()

	ready := check()

	p.mu.Lock()
	if p.state != Polling || p.gen != gen {
		p.mu.Unlock()
		return
	}
	if ready || (p.maxAttempts > 0 && p.attempts >= p.maxAttempts) {
		p.state = Idle
		p.timer = nil
		p.mu.Unlock()
		if ready && onReady != nil {
			onReady()
		}
		return
	}
	p.schedule(gen, check, onReady)
	p.mu.Unlock()
}

// Stop cancels any pending poll.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.state = Idle
	p.gen++
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Attempts returns the number of checks run since the last Start.
func (p *Poller) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}
