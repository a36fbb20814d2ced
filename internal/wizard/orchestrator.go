package wizard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/vsm-auth/internal/domain"
	"github.com/ErlanBelekov/vsm-auth/internal/gateway"
	ctxlog "github.com/ErlanBelekov/vsm-auth/internal/log"
	"github.com/ErlanBelekov/vsm-auth/internal/metrics"
	"github.com/go-playground/validator/v10"
)

const (
	bannerTTL      = 5 * time.Second
	loginRedirect  = 2 * time.Second
	signupRedirect = 3 * time.Second
	focusDelay     = 100 * time.Millisecond

	// LocationDashboard is where a completed login or registration goes.
	LocationDashboard = "/dashboard"
)

const (
	msgInvalidEmail    = "Please enter a valid email address"
	msgInvalidOTP      = "Please enter a valid 4-digit code"
	msgNoChallenge     = "Your verification session has ended. Please request a new OTP."
	msgLoginFailed     = "Failed to send OTP. Please try again."
	msgRegisterFailed  = "Registration failed. Please try again."
	msgVerifyFailed    = "Verification failed. Please try again."
	msgResendFailed    = "Failed to resend OTP. Please try again."
	msgResent          = "A new verification code has been sent"
	msgNetwork         = "An error occurred. Please try again."
	msgLoginSuccess    = "Login successful! Redirecting to dashboard..."
	msgRegisterSuccess = "Registration Successful! Your account has been created successfully. Redirecting to dashboard..."
)

// authAPI is the subset of gateway.Client the wizard calls.
// Defined here (point of use) so tests can inject a fake.
type authAPI interface {
	RequestLoginOTP(ctx context.Context, email string) (*gateway.Reply, error)
	RequestRegisterOTP(ctx context.Context, req gateway.RegisterRequest) (*gateway.Reply, error)
	VerifyLogin(ctx context.Context, email, otp string) (*gateway.Reply, error)
	VerifyRegister(ctx context.Context, email, otp string) (*gateway.Reply, error)
	ResendOTP(ctx context.Context, email string) (*gateway.Reply, error)
}

type tokenSaver interface {
	Set(key, value string) error
}

// Orchestrator is the sign-in wizard of one page load. All state lives here
// and is only touched by Dispatch; user input and timer callbacks reach it
// through Post and the Run loop, so handling is strictly sequential.
type Orchestrator struct {
	api    authAPI
	tokens tokenSaver
	sched  Scheduler
	logger *slog.Logger

	onChange   func(Snapshot)
	onNavigate func(string)

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	page         *page
	countdown    *Countdown
	panels       *PanelController
	pendingEmail string
	bannerSeq    uint64
	timerSeq     uint64
	timers       map[uint64]func()
}

type Option func(*Orchestrator)

func WithScheduler(s Scheduler) Option {
	return func(o *Orchestrator) { o.sched = s }
}

// WithOnChange registers a callback that receives a snapshot after every
// event that was handled.
func WithOnChange(fn func(Snapshot)) Option {
	return func(o *Orchestrator) { o.onChange = fn }
}

// WithOnNavigate registers a callback for delayed redirects.
func WithOnNavigate(fn func(location string)) Option {
	return func(o *Orchestrator) { o.onNavigate = fn }
}

// New builds the wizard with the login panel showing.
func New(api authAPI, tokens tokenSaver, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:    api,
		tokens: tokens,
		sched:  TimeScheduler{},
		logger: logger.With("component", "wizard"),
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		page:   newPage(),
		timers: make(map[uint64]func()),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.countdown = NewCountdown(o.sched, func(gen uint64) {
		o.Post(Event{Kind: EventCountdownTick, ID: gen})
	})
	o.panels = newPanelController(o.page, o.countdown)
	o.panels.ShowLogin()
	o.page.focus = domain.FieldLoginEmail
	return o
}

// Run handles posted events until ctx is cancelled, then tears down.
func (o *Orchestrator) Run(ctx context.Context) {
	defer o.Close()

	o.logger.Info("wizard started")
	o.emit()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("wizard shut down")
			return
		case <-o.done:
			return
		case ev := <-o.events:
			o.Dispatch(ctx, ev)
		}
	}
}

// Post queues ev for the Run loop. It is safe from any goroutine and is a
// no-op once the wizard is closed.
func (o *Orchestrator) Post(ev Event) {
	select {
	case <-o.done:
		return
	default:
	}
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

// Drain handles every queued event without blocking. For callers that drive
// the wizard themselves instead of through Run.
func (o *Orchestrator) Drain(ctx context.Context) {
	for {
		select {
		case ev := <-o.events:
			o.Dispatch(ctx, ev)
		default:
			return
		}
	}
}

// Close releases the countdown and every pending delayed action. Call it
// from the goroutine that dispatches, or after Run has returned.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
		o.countdown.Stop()
		for id, cancel := range o.timers {
			cancel()
			delete(o.timers, id)
		}
	})
}

// Dispatch handles one event synchronously.
func (o *Orchestrator) Dispatch(ctx context.Context, ev Event) {
	if ev.timer != 0 {
		delete(o.timers, ev.timer)
	}

	switch ev.Kind {
	case EventShowLogin:
		o.panels.ShowLogin()
	case EventShowRegister:
		o.panels.ShowRegister()
	case EventInput:
		o.page.inputs[ev.Field] = ev.Value
		delete(o.page.fieldErrors, ev.Field)
	case EventSubmitLogin:
		o.submitLogin(ctx)
	case EventSubmitRegister:
		o.submitRegister(ctx)
	case EventOtpInput:
		o.otpInput(ev.Cell, ev.Value)
	case EventOtpBackspace:
		o.otpBackspace(ev.Cell)
	case EventSubmitOtp:
		o.submitOtp(ctx)
	case EventResend:
		o.resend(ctx)
	case EventChangeEmail:
		o.changeEmail()
	case EventCountdownTick:
		if !o.countdown.Tick(ev.ID) {
			return
		}
	case EventBannerExpired:
		if b, ok := o.page.banners[ev.Form]; ok && b.ID == ev.ID {
			delete(o.page.banners, ev.Form)
		}
	case EventFocus:
		o.page.focus = ev.Field
	case EventNavigate:
		o.page.location = ev.Value
		o.logger.Info("navigating", "location", ev.Value)
		if o.onNavigate != nil {
			o.onNavigate(ev.Value)
		}
	default:
		o.logger.Warn("unknown event", "kind", int(ev.Kind))
		return
	}

	o.emit()
}

func (o *Orchestrator) submitLogin(ctx context.Context) {
	ctx = ctxlog.WithFlow(ctx, domain.FlowLogin.String())
	email := strings.TrimSpace(o.page.inputs[domain.FieldLoginEmail])

	if err := Validate(LoginForm{Email: email}); err != nil {
		o.page.fieldErrors[domain.FieldLoginEmail] = msgInvalidEmail
		o.count("login_submit", metrics.ResultInvalid)
		return
	}

	if _, err := o.api.RequestLoginOTP(ctx, email); err != nil {
		o.fail(ctx, "login_submit", domain.FormLogin, err, msgLoginFailed)
		return
	}

	o.pendingEmail = email
	o.panels.ShowOtp(domain.FlowLogin)
	o.count("login_submit", metrics.ResultOK)
	o.logger.InfoContext(ctx, "login otp requested")
}

func (o *Orchestrator) submitRegister(ctx context.Context) {
	ctx = ctxlog.WithFlow(ctx, domain.FlowRegister.String())
	form := RegisterForm{
		Name:   strings.TrimSpace(o.page.inputs[domain.FieldRegisterName]),
		Email:  strings.TrimSpace(o.page.inputs[domain.FieldRegisterEmail]),
		Mobile: strings.TrimSpace(o.page.inputs[domain.FieldRegisterMobile]),
	}

	if err := Validate(form); err != nil {
		o.page.fieldErrors[domain.FieldRegisterEmail] = msgInvalidEmail
		o.count("register_submit", metrics.ResultInvalid)
		return
	}

	_, err := o.api.RequestRegisterOTP(ctx, gateway.RegisterRequest{
		Name:         form.Name,
		Email:        form.Email,
		MobileNumber: form.Mobile,
	})
	if err != nil {
		o.fail(ctx, "register_submit", domain.FormRegister, err, msgRegisterFailed)
		return
	}

	o.pendingEmail = form.Email
	o.panels.ShowOtp(domain.FlowRegister)
	o.count("register_submit", metrics.ResultOK)
	o.logger.InfoContext(ctx, "registration otp requested")
}

func (o *Orchestrator) otpInput(cell int, value string) {
	if o.page.panel != domain.PanelOTP {
		return
	}
	if o.page.otp.Input(cell, value) {
		o.page.focus = domain.OTPCell(cell + 1)
	}
}

func (o *Orchestrator) otpBackspace(cell int) {
	if o.page.panel != domain.PanelOTP {
		return
	}
	if o.page.otp.Backspace(cell) {
		o.page.focus = domain.OTPCell(cell - 1)
	}
}

func (o *Orchestrator) submitOtp(ctx context.Context) {
	if o.page.panel != domain.PanelOTP {
		return
	}
	flow := o.panels.Flow()
	ctx = ctxlog.WithFlow(ctx, flow.String())
	form := VerifyForm{Email: o.pendingEmail, Code: o.page.otp.Code()}

	if err := Validate(form); err != nil {
		msg := msgInvalidOTP
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "Email" {
			msg = msgNoChallenge
		}
		o.showBanner(domain.FormOTP, BannerError, msg)
		o.count("verify_submit", metrics.ResultInvalid)
		return
	}

	verify := o.api.VerifyLogin
	if flow == domain.FlowRegister {
		verify = o.api.VerifyRegister
	}
	reply, err := verify(ctx, form.Email, form.Code)
	if err != nil {
		o.fail(ctx, "verify_submit", domain.FormOTP, err, msgVerifyFailed)
		return
	}

	if reply.Token != "" {
		if err := o.tokens.Set(domain.TokenKey, reply.Token); err != nil {
			o.logger.ErrorContext(ctx, "store auth token", "error", err)
		}
	}

	// The challenge is spent. The countdown keeps running until the
	// redirect, and resend has no email to send to.
	o.pendingEmail = ""
	o.page.otp.Reset()
	o.count("verify_submit", metrics.ResultOK)
	o.logger.InfoContext(ctx, "otp verified", "token_received", reply.Token != "")

	if flow == domain.FlowLogin {
		o.showBanner(domain.FormOTP, BannerSuccess, msgLoginSuccess)
		o.after(loginRedirect, Event{Kind: EventNavigate, Value: LocationDashboard})
		return
	}
	o.page.completion = msgRegisterSuccess
	o.after(signupRedirect, Event{Kind: EventNavigate, Value: LocationDashboard})
}

func (o *Orchestrator) resend(ctx context.Context) {
	if o.page.panel != domain.PanelOTP {
		return
	}
	flow := o.panels.Flow()
	ctx = ctxlog.WithFlow(ctx, flow.String())

	if !o.countdown.ResendEnabled() {
		o.logger.DebugContext(ctx, "resend ignored", "error", domain.ErrResendLocked, "remaining", o.countdown.Remaining())
		o.count("resend", metrics.ResultLocked)
		return
	}
	if o.pendingEmail == "" {
		o.logger.DebugContext(ctx, "resend ignored", "error", domain.ErrNoPendingChallenge)
		o.count("resend", metrics.ResultLocked)
		return
	}

	if _, err := o.api.ResendOTP(ctx, o.pendingEmail); err != nil {
		o.fail(ctx, "resend", domain.FormOTP, err, msgResendFailed)
		return
	}

	o.countdown.Start()
	o.showBanner(domain.FormOTP, BannerSuccess, msgResent)
	o.count("resend", metrics.ResultOK)
	o.logger.InfoContext(ctx, "otp resent")
}

func (o *Orchestrator) changeEmail() {
	flow := o.panels.Flow()
	if flow == domain.FlowRegister {
		o.panels.ShowRegister()
	} else {
		o.panels.ShowLogin()
	}
	o.after(focusDelay, Event{Kind: EventFocus, Field: domain.EmailField(flow)})
	o.count("change_email", metrics.ResultOK)
}

// fail shows the server's message for err, or fallback, as the form banner.
func (o *Orchestrator) fail(ctx context.Context, action string, form domain.Form, err error, fallback string) {
	msg, ok := gateway.ServerMessage(err)
	result := metrics.ResultRejected
	switch {
	case ok:
	case errors.Is(err, gateway.ErrTransport):
		msg = msgNetwork
		result = metrics.ResultError
	default:
		msg = fallback
	}

	o.logger.WarnContext(ctx, "action failed", "action", action, "error", err)
	o.showBanner(form, BannerError, msg)
	o.count(action, result)
}

// showBanner replaces the form's banner and schedules its removal.
func (o *Orchestrator) showBanner(form domain.Form, kind BannerKind, text string) {
	o.bannerSeq++
	o.page.banners[form] = Banner{Kind: kind, Text: text, ID: o.bannerSeq}
	o.after(bannerTTL, Event{Kind: EventBannerExpired, Form: form, ID: o.bannerSeq})
}

func (o *Orchestrator) after(d time.Duration, ev Event) {
	o.timerSeq++
	ev.timer = o.timerSeq
	o.timers[ev.timer] = o.sched.After(d, func() { o.Post(ev) })
}

func (o *Orchestrator) count(action, result string) {
	metrics.WizardActionsTotal.WithLabelValues(action, result).Inc()
}

func (o *Orchestrator) emit() {
	if o.onChange != nil {
		o.onChange(o.Snapshot())
	}
}

// Snapshot copies the current state. Call it from the dispatching goroutine.
func (o *Orchestrator) Snapshot() Snapshot {
	return Snapshot{
		Panel:          o.page.panel,
		ActiveTab:      o.page.tab,
		Flow:           o.panels.Flow(),
		PendingEmail:   o.pendingEmail,
		EmailDisplay:   o.page.emailDisplay,
		Inputs:         copyMap(o.page.inputs),
		OTP:            o.page.otp.Cells(),
		Focus:          o.page.focus,
		Countdown:      o.countdown.State(),
		Remaining:      o.countdown.Remaining(),
		CountdownLabel: o.countdown.Display(),
		ResendEnabled:  o.countdown.ResendEnabled(),
		Banners:        copyMap(o.page.banners),
		FieldErrors:    copyMap(o.page.fieldErrors),
		Completion:     o.page.completion,
		Location:       o.page.location,
	}
}

// PendingTimers is the number of delayed actions not yet fired or cancelled.
func (o *Orchestrator) PendingTimers() int {
	return len(o.timers)
}
