package metrics_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/vsm-auth/internal/health"
	"github.com/ErlanBelekov/vsm-auth/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func TestRegister_AllCollectorsOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	metrics.WizardActionsTotal.WithLabelValues("login_submit", metrics.ResultOK).Inc()
	metrics.GatewayRequestsTotal.WithLabelValues("login_otp", metrics.OutcomeSuccess).Inc()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "vsmauth_wizard_actions_total")
	assert.Contains(t, names, "vsmauth_gateway_requests_total")
}

func TestServer_Healthz(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"up", nil, http.StatusOK},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checker := health.NewChecker(&mockPinger{err: tc.err}, slog.Default(), prometheus.NewRegistry())
			srv := metrics.NewServer(":0", checker)

			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tc.want, w.Code)
		})
	}
}
