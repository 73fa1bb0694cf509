package discovery

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock fires timers only when Advance is called.
type manualClock struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.pending = append(c.pending, t)
	return t
}

// Advance fires every timer pending at call time.
func (c *manualClock) Advance() int {
	c.mu.Lock()
	due := c.pending
	c.pending = nil
	c.mu.Unlock()

	fired := 0
	for _, t := range due {
		if !t.stopped {
			t.stopped = true
			t.f()
			fired++
		}
	}
	return fired
}

func TestPoller_ReadyAfterSomeTicks(t *testing.T) {
	clock := &manualClock{}
	p := NewPoller(clock, time.Second, 10)

	checks, readies := 0, 0
	started := p.Start(func() bool {
		checks++
		return checks == 3
	}, func() { readies++ })

	require.True(t, started)
	assert.Equal(t, Polling, p.State())

	assert.Equal(t, 1, clock.Advance())
	assert.Equal(t, 1, clock.Advance())
	assert.Equal(t, Polling, p.State())
	assert.Equal(t, 1, clock.Advance())

	assert.Equal(t, Idle, p.State())
	assert.Equal(t, 3, checks)
	assert.Equal(t, 1, readies)
	assert.Equal(t, 0, clock.Advance(), "no timer left after success")
}

func TestPoller_GivesUpAfterMaxAttempts(t *testing.T) {
	clock := &manualClock{}
	p := NewPoller(clock, time.Second, 2)

	readies := 0
	p.Start(func() bool { return false }, func() { readies++ })

	clock.Advance()
	clock.Advance()

	assert.Equal(t, Idle, p.State())
	assert.Equal(t, 2, p.Attempts())
	assert.Equal(t, 0, readies)
	assert.Equal(t, 0, clock.Advance())
}

func TestPoller_StartWhilePolling(t *testing.T) {
	clock := &manualClock{}
	p := NewPoller(clock, time.Second, 0)

	assert.True(t, p.Start(func() bool { return false }, nil))
	assert.False(t, p.Start(func() bool { return true }, nil))

	clock.Advance()
	assert.Equal(t, Polling, p.State())
}

func TestPoller_Stop(t *testing.T) {
	clock := &manualClock{}
	p := NewPoller(clock, time.Second, 0)

	checks := 0
	p.Start(func() bool { checks++; return false }, nil)
	p.Stop()

	assert.Equal(t, Idle, p.State())
	assert.Equal(t, 0, clock.Advance())
	assert.Equal(t, 0, checks)

	assert.True(t, p.Start(func() bool { checks++; return true }, nil))
	clock.Advance()
	assert.Equal(t, 1, checks)
	assert.Equal(t, Idle, p.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "polling", Polling.String())
	assert.Equal(t, "unknown", State(9).String())
}
