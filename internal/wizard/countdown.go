package wizard

import (
	"fmt"
	"time"

	"github.com/ErlanBelekov/vsm-auth/internal/metrics"
)

// CountdownSeconds is where every resend countdown starts.
const CountdownSeconds = 30

type CountdownState int

const (
	CountdownIdle CountdownState = iota
	CountdownRunning
	CountdownExpired
)

func (s CountdownState) String() string {
	switch s {
	case CountdownRunning:
		return "running"
	case CountdownExpired:
		return "expired"
	default:
		return "idle"
	}
}

// Countdown gates the resend action. It owns at most one tick source:
// Start always releases the previous one before acquiring the next, and
// every acquisition gets a new generation so ticks already in flight from a
// released source are ignored by Tick.
type Countdown struct {
	sched  Scheduler
	onTick func(gen uint64)

	state     CountdownState
	remaining int
	gen       uint64
	release   func()
}

// NewCountdown returns an idle countdown. onTick is called from the
// scheduler's goroutine once per second while running; it should hand the
// generation back to Tick on the owner's goroutine.
func NewCountdown(sched Scheduler, onTick func(gen uint64)) *Countdown {
	return &Countdown{sched: sched, onTick: onTick}
}

func (c *Countdown) Start() {
	c.releaseSource()

	c.gen++
	gen := c.gen
	c.remaining = CountdownSeconds
	c.state = CountdownRunning
	c.release = c.sched.Every(time.Second, func() { c.onTick(gen) })

	metrics.CountdownStartsTotal.Inc()
}

// Tick applies one second from the source of generation gen. It reports
// whether the countdown changed.
func (c *Countdown) Tick(gen uint64) bool {
	if gen != c.gen || c.state != CountdownRunning {
		return false
	}

	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.state = CountdownExpired
		c.releaseSource()
	}
	return true
}

// Stop releases the tick source and returns to idle.
func (c *Countdown) Stop() {
	c.releaseSource()
	c.state = CountdownIdle
	c.remaining = 0
}

func (c *Countdown) releaseSource() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

func (c *Countdown) State() CountdownState { return c.state }
func (c *Countdown) Remaining() int        { return c.remaining }
func (c *Countdown) Generation() uint64    { return c.gen }

// Active reports whether a tick source is currently held.
func (c *Countdown) Active() bool { return c.release != nil }

// ResendEnabled is false only while the countdown is running.
func (c *Countdown) ResendEnabled() bool { return c.state != CountdownRunning }

// Display formats the remaining time as MM:SS.
func (c *Countdown) Display() string {
	return fmt.Sprintf("%02d:%02d", c.remaining/60, c.remaining%60)
}
