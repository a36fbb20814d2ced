package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// checkTimeout bounds one reachability check of the auth API.
const checkTimeout = 2 * time.Second

// Pinger is satisfied by *gateway.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckResult is the outcome of one check of a dependency.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthResult is the top-level health response.
type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker reports whether the auth API answers and how long it took.
type Checker struct {
	api     Pinger
	logger  *slog.Logger
	up      *prometheus.GaugeVec
	latency *prometheus.GaugeVec
}

// NewChecker creates a health checker and registers its gauges on reg.
func NewChecker(api Pinger, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	up := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vsmauth",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	latency := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vsmauth",
		Name:      "health_check_duration_seconds",
		Help:      "Duration of the last reachability check of a dependency.",
	}, []string{"dependency"})
	reg.MustRegister(up, latency)

	return &Checker{
		api:     api,
		logger:  logger.With("component", "health"),
		up:      up,
		latency: latency,
	}
}

// Readiness pings the auth API once. A ping that runs into checkTimeout
// counts as down.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := c.api.Ping(checkCtx)
	elapsed := time.Since(start)
	c.latency.WithLabelValues("api").Set(elapsed.Seconds())

	check := CheckResult{Status: "up", LatencyMS: elapsed.Milliseconds()}
	result := HealthResult{Status: "up", Checks: map[string]CheckResult{}}

	if err != nil {
		c.logger.WarnContext(ctx, "auth api health check failed", "error", err, "duration", elapsed)
		check.Status = "down"
		check.Error = err.Error()
		result.Status = "down"
		c.up.WithLabelValues("api").Set(0)
	} else {
		c.logger.DebugContext(ctx, "auth api reachable", "duration", elapsed)
		c.up.WithLabelValues("api").Set(1)
	}

	result.Checks["api"] = check
	return result
}
