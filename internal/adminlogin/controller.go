// Package adminlogin is the admin email+password sign-in. Unlike the OTP
// wizard its submit control is locked while a request is in flight.
package adminlogin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/ErlanBelekov/vsm-auth/internal/domain"
	"github.com/ErlanBelekov/vsm-auth/internal/gateway"
	ctxlog "github.com/ErlanBelekov/vsm-auth/internal/log"
	"github.com/ErlanBelekov/vsm-auth/internal/metrics"
	"github.com/ErlanBelekov/vsm-auth/internal/wizard"
	"github.com/go-playground/validator/v10"
)

// DefaultRedirect is used when the server accepts the login without naming
// where to go.
const DefaultRedirect = "/admin/dashboard"

var ErrSubmitInProgress = errors.New("admin login already in progress")

const (
	msgInvalidEmail     = "Please enter a valid email address."
	msgPasswordRequired = "Please enter your password."
	msgRejected         = "Invalid email or password."
	msgNetwork          = "An error occurred. Please try again later."
	msgInProgress       = "Signing in..."
)

// FieldError is a validation failure attached to one input.
type FieldError struct {
	Field   domain.Field
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Form struct {
	Email      string `validate:"looseemail"`
	Password   string `validate:"required"`
	RememberMe bool
}

type adminAPI interface {
	AdminLogin(ctx context.Context, req gateway.AdminLoginRequest) (*gateway.Reply, error)
}

type Controller struct {
	api        adminAPI
	logger     *slog.Logger
	submitting atomic.Bool
}

func NewController(api adminAPI, logger *slog.Logger) *Controller {
	return &Controller{
		api:    api,
		logger: logger.With("component", "admin_login"),
	}
}

// Submitting reports whether a submission is in flight (the button's
// loading state).
func (c *Controller) Submitting() bool {
	return c.submitting.Load()
}

// Submit validates form and posts it. On success it returns where to
// navigate. A second Submit while one is in flight fails fast with
// ErrSubmitInProgress and makes no call.
func (c *Controller) Submit(ctx context.Context, form Form) (string, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		metrics.AdminLoginsTotal.WithLabelValues(metrics.ResultLocked).Inc()
		return "", ErrSubmitInProgress
	}
	defer c.submitting.Store(false)

	ctx = ctxlog.WithFlow(ctx, "admin")
	form.Email = strings.TrimSpace(form.Email)

	if err := wizard.Validate(form); err != nil {
		metrics.AdminLoginsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return "", fieldError(err)
	}

	reply, err := c.api.AdminLogin(ctx, gateway.AdminLoginRequest{
		Email:      form.Email,
		Password:   form.Password,
		RememberMe: form.RememberMe,
	})
	if err != nil {
		result := metrics.ResultRejected
		if errors.Is(err, gateway.ErrTransport) {
			result = metrics.ResultError
		}
		metrics.AdminLoginsTotal.WithLabelValues(result).Inc()
		c.logger.WarnContext(ctx, "admin login failed", "error", err)
		return "", fmt.Errorf("admin login: %w", err)
	}

	metrics.AdminLoginsTotal.WithLabelValues(metrics.ResultOK).Inc()
	c.logger.InfoContext(ctx, "admin signed in", "remember_me", form.RememberMe)

	if reply.RedirectURL == "" {
		return DefaultRedirect, nil
	}
	return reply.RedirectURL, nil
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && verrs[0].Field() == "Password" {
		return &FieldError{Field: domain.FieldAdminPassword, Message: msgPasswordRequired}
	}
	return &FieldError{Field: domain.FieldAdminEmail, Message: msgInvalidEmail}
}

// Message is the text to show the user for an error returned by Submit.
func Message(err error) string {
	var fe *FieldError
	switch {
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, ErrSubmitInProgress):
		return msgInProgress
	case errors.Is(err, gateway.ErrTransport):
		return msgNetwork
	}
	if msg, ok := gateway.ServerMessage(err); ok {
		return msg
	}
	return msgRejected
}
