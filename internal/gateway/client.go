package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ErlanBelekov/vsm-auth/internal/metrics"
	"github.com/ErlanBelekov/vsm-auth/internal/requestid"
)

const maxBodyBytes = 1 << 20

// Client calls the vehicle-service auth API over JSON/HTTP.
// There is no retry: every failure is returned to the caller as-is.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	bearer  func() string
	logger  *slog.Logger
}

type Option func(*Client)

// WithTimeout bounds every call, on top of whatever deadline ctx carries.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithBearer attaches "Authorization: Bearer <token>" whenever fn returns a
// non-empty token.
func WithBearer(fn func() string) Option {
	return func(c *Client) { c.bearer = fn }
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{}, // per-call timeout below
		timeout: 15 * time.Second,
		logger:  logger.With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) RequestLoginOTP(ctx context.Context, email string) (*Reply, error) {
	return c.post(ctx, EndpointLoginOTP, emailRequest{Email: email})
}

func (c *Client) RequestRegisterOTP(ctx context.Context, req RegisterRequest) (*Reply, error) {
	return c.post(ctx, EndpointRegisterOTP, req)
}

func (c *Client) VerifyLogin(ctx context.Context, email, otp string) (*Reply, error) {
	return c.post(ctx, EndpointLoginVerify, verifyRequest{Email: email, OTP: otp})
}

func (c *Client) VerifyRegister(ctx context.Context, email, otp string) (*Reply, error) {
	return c.post(ctx, EndpointRegisterVerify, verifyRequest{Email: email, OTP: otp})
}

func (c *Client) ResendOTP(ctx context.Context, email string) (*Reply, error) {
	return c.post(ctx, EndpointResendOTP, emailRequest{Email: email})
}

func (c *Client) AdminLogin(ctx context.Context, req AdminLoginRequest) (*Reply, error) {
	return c.post(ctx, EndpointAdminLogin, req)
}

// Ping succeeds when the API host answers HTTP at all, whatever the status.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) post(ctx context.Context, ep Endpoint, body any) (*Reply, error) {
	start := time.Now()
	ctx, id := requestid.Ensure(ctx)

	env, status, err := c.do(ctx, ep, id, body)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeTransport
		c.logger.WarnContext(ctx, "auth api call failed", "endpoint", ep.Path, "error", err, "duration", elapsed)
	case !env.Success:
		outcome = metrics.OutcomeRejected
		c.logger.InfoContext(ctx, "auth api rejected call", "endpoint", ep.Path, "status", status, "message", env.Message)
	default:
		c.logger.DebugContext(ctx, "auth api call", "endpoint", ep.Path, "status", status, "duration", elapsed)
	}
	metrics.GatewayRequestDuration.WithLabelValues(ep.Name, outcome).Observe(elapsed.Seconds())
	metrics.GatewayRequestsTotal.WithLabelValues(ep.Name, outcome).Inc()

	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &APIError{Endpoint: ep.Path, StatusCode: status, Message: env.Message}
	}
	return &Reply{
		Message:     env.Message,
		Token:       tokenFromData(env.Data),
		RedirectURL: env.RedirectURL,
	}, nil
}

func (c *Client) do(ctx context.Context, ep Endpoint, id string, body any) (*envelope, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s request: %w", ep.Path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ep.Path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestid.Header, id)
	if c.bearer != nil {
		if token := c.bearer(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w: %w", ep.Path, ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s: %w: read body: %w", ep.Path, ErrTransport, err)
	}

	// Business failures come back in the body whatever the status code, so a
	// non-2xx with a JSON envelope is still a reply.
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s: %w: status %d: decode body: %w", ep.Path, ErrTransport, resp.StatusCode, err)
	}
	return &env, resp.StatusCode, nil
}
