package wizard

import (
	"sync"
	"time"
)

// Scheduler runs callbacks later. Callbacks run on their own goroutine and
// must not touch wizard state; the orchestrator only ever posts an event
// from them. The returned cancel func is idempotent.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
	After(d time.Duration, fn func()) (cancel func())
}

// TimeScheduler is the wall-clock Scheduler.
type TimeScheduler struct{}

func (TimeScheduler) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})

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

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (TimeScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
