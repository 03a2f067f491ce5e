package clock

import (
	"sync"
	"time"
)

// Manual is a virtual clock. Tasks run synchronously inside Advance, in
// deadline order, with the clock set to each task's deadline.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[*manualTimer]struct{}
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: make(map[*manualTimer]struct{})}
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.tasks[t] = struct{}{}
	return t
}

// Advance moves virtual time forward by d, running every task that falls due.
// Tasks scheduled by running tasks are run too when they fall inside the window.
func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		delete(c.tasks, next)
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

func (c *Manual) nextDue(target time.Time) *manualTimer {
	var next *manualTimer
	for t := range c.tasks {
		if t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (c *Manual) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

type manualTimer struct {
	clock *Manual
	at    time.Time
	seq   uint64
	f     func()
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.tasks[t]; !ok {
		return false
	}
	delete(t.clock.tasks, t)
	return true
}
