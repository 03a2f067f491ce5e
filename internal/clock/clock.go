// Package clock provides the time source and delayed-task scheduler shared by
// the emulators. Real runs tasks on wall-clock timers and can cancel them all on
// shutdown; Manual runs them when a test advances virtual time.
package clock

import (
	"context"
	"sync"
	"time"
)

type Timer interface {
	// Stop cancels a pending task. It reports false if the task already ran or was stopped.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Real struct {
	mu     sync.Mutex
	timers map[*realTimer]struct{}
	wg     sync.WaitGroup
	closed bool
}

func NewReal() *Real {
	return &Real{timers: make(map[*realTimer]struct{})}
}

func (c *Real) Now() time.Time {
	return time.Now().UTC()
}

func (c *Real) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &realTimer{clock: c}
	if c.closed {
		return t
	}
	c.timers[t] = struct{}{}
	t.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		if _, ok := c.timers[t]; !ok {
			c.mu.Unlock()
			return
		}
		delete(c.timers, t)
		c.wg.Add(1)
		c.mu.Unlock()

		defer c.wg.Done()
		f()
	})
	return t
}

// Pending returns the number of scheduled tasks that have not started.
func (c *Real) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Shutdown cancels every pending task, refuses new ones and waits for running
// tasks to return or ctx to expire.
func (c *Real) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	for t := range c.timers {
		t.timer.Stop()
	}
	clear(c.timers)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type realTimer struct {
	clock *Real
	timer *time.Timer
}

func (t *realTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.timers[t]; !ok {
		return false
	}
	delete(t.clock.timers, t)
	return t.timer.Stop()
}
