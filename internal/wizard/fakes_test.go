package wizard_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/vsm-auth/internal/gateway"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// ---- fake auth API ----

type call struct {
	method string
	email  string
	otp    string
	reg    gateway.RegisterRequest
}

type fakeAPI struct {
	calls []call

	requestLoginOTP    func(email string) (*gateway.Reply, error)
	requestRegisterOTP func(req gateway.RegisterRequest) (*gateway.Reply, error)
	verifyLogin        func(email, otp string) (*gateway.Reply, error)
	verifyRegister     func(email, otp string) (*gateway.Reply, error)
	resendOTP          func(email string) (*gateway.Reply, error)
}

func okReply() (*gateway.Reply, error) { return &gateway.Reply{}, nil }

func (f *fakeAPI) RequestLoginOTP(_ context.Context, email string) (*gateway.Reply, error) {
	f.calls = append(f.calls, call{method: "RequestLoginOTP", email: email})
	if f.requestLoginOTP == nil {
		return okReply()
	}
	return f.requestLoginOTP(email)
}

func (f *fakeAPI) RequestRegisterOTP(_ context.Context, req gateway.RegisterRequest) (*gateway.Reply, error) {
	f.calls = append(f.calls, call{method: "RequestRegisterOTP", email: req.Email, reg: req})
	if f.requestRegisterOTP == nil {
		return okReply()
	}
	return f.requestRegisterOTP(req)
}

func (f *fakeAPI) VerifyLogin(_ context.Context, email, otp string) (*gateway.Reply, error) {
	f.calls = append(f.calls, call{method: "VerifyLogin", email: email, otp: otp})
	if f.verifyLogin == nil {
		return okReply()
	}
	return f.verifyLogin(email, otp)
}

func (f *fakeAPI) VerifyRegister(_ context.Context, email, otp string) (*gateway.Reply, error) {
	f.calls = append(f.calls, call{method: "VerifyRegister", email: email, otp: otp})
	if f.verifyRegister == nil {
		return okReply()
	}
	return f.verifyRegister(email, otp)
}

func (f *fakeAPI) ResendOTP(_ context.Context, email string) (*gateway.Reply, error) {
	f.calls = append(f.calls, call{method: "ResendOTP", email: email})
	if f.resendOTP == nil {
		return okReply()
	}
	return f.resendOTP(email)
}

func (f *fakeAPI) count(method string) int {
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

// ---- fake scheduler ----

type fakeTimer struct {
	d         time.Duration
	fn        func()
	repeat    bool
	cancelled bool
	fired     bool
}

// fakeScheduler never fires on its own; tests fire timers explicitly.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) add(d time.Duration, fn func(), repeat bool) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn, repeat: repeat}
	s.timers = append(s.timers, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
	}
}

func (s *fakeScheduler) Every(d time.Duration, fn func()) func() { return s.add(d, fn, true) }
func (s *fakeScheduler) After(d time.Duration, fn func()) func() { return s.add(d, fn, false) }

func (s *fakeScheduler) live(repeat bool) []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if t.repeat == repeat && !t.cancelled && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// activeTickers is the number of repeating sources still running.
func (s *fakeScheduler) activeTickers() int { return len(s.live(true)) }

// tick fires every live repeating source once.
func (s *fakeScheduler) tick() {
	for _, t := range s.live(true) {
		t.fn()
	}
}

// pendingAfter returns the live one-shot timers with delay d.
func (s *fakeScheduler) pendingAfter(d time.Duration) []*fakeTimer {
	var out []*fakeTimer
	for _, t := range s.live(false) {
		if t.d == d {
			out = append(out, t)
		}
	}
	return out
}

// fireAfter fires every live one-shot timer with delay d.
func (s *fakeScheduler) fireAfter(d time.Duration) int {
	timers := s.pendingAfter(d)
	for _, t := range timers {
		s.mu.Lock()
		t.fired = true
		s.mu.Unlock()
		t.fn()
	}
	return len(timers)
}
