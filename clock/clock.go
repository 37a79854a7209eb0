// Package clock provides the time source of the engine. It's consulted for the Date
// header and cache validators only.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Resolution is the frequency at which the system clock is updated. Default 500ms are
// precise enough for second-resolution HTTP dates.
const Resolution = 500 * time.Millisecond

type coarse struct {
	millis atomic.Int64
	once   sync.Once
}

var system = new(coarse)

// System returns the process-wide coarse clock. It's backed by a single goroutine, which
// is started on the first call.
func System() Clock {
	system.once.Do(func() {
		system.millis.Store(time.Now().UnixMilli())

		go func() {
			for {
				time.Sleep(Resolution)
				system.millis.Store(time.Now().UnixMilli())
			}
		}()
	})

	return system
}

func (c *coarse) Now() time.Time {
	return time.UnixMilli(c.millis.Load())
}

type fixed struct {
	t time.Time
}

// Fixed returns a clock, which always reports the same instant.
func Fixed(t time.Time) Clock {
	return fixed{t}
}

func (f fixed) Now() time.Time {
	return f.t
}

// Func adapts an ordinary function to the Clock interface.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}
