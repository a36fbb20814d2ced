package terminal

import (
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/ErlanBelekov/vsm-auth/internal/wizard"
)

// Screen draws snapshots to w and remembers the last one so input can be
// parsed against what is on screen. A snapshot that differs from the
// previous one only by the countdown redraws just the countdown line.
type Screen struct {
	mu   sync.Mutex
	w    io.Writer
	last *wizard.Snapshot
}

func NewScreen(w io.Writer) *Screen {
	return &Screen{w: w}
}

func (s *Screen) Show(snap wizard.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.last
	s.last = &snap
	if prev != nil && onlyCountdownChanged(*prev, snap) {
		_, err := fmt.Fprintf(s.w, "  %s\n", CountdownLine(snap))
		return err
	}
	if _, err := io.WriteString(s.w, "\n"); err != nil {
		return err
	}
	return Render(s.w, snap)
}

// Current is the last snapshot shown, if any.
func (s *Screen) Current() (wizard.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return wizard.Snapshot{}, false
	}
	return *s.last, true
}

// Printf writes a line outside the rendered page.
func (s *Screen) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}

func onlyCountdownChanged(a, b wizard.Snapshot) bool {
	if a.Remaining == b.Remaining && a.Countdown == b.Countdown {
		return false
	}
	for _, s := range []*wizard.Snapshot{&a, &b} {
		s.Countdown = 0
		s.Remaining = 0
		s.CountdownLabel = ""
		s.ResendEnabled = false
	}
	return reflect.DeepEqual(a, b)
}
