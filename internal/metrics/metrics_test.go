package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMetricLine finds a sample of name carrying every label with the given value.
// Scope labels added by the exporter may sit between the ones asserted here.
func assertMetricLine(t *testing.T, output, name string, labels []string, value string) {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, name+"{") && !strings.HasPrefix(line, name+" ") {
			continue
		}
		if !strings.HasSuffix(line, " "+value) {
			continue
		}
		matched := true
		for _, label := range labels {
			if !strings.Contains(line, label) {
				matched = false
				break
			}
		}
		if matched {
			return
		}
	}
	t.Errorf("no sample %s with labels %v and value %s in:\n%s", name, labels, value, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider()
	require.NoError(t, err)
	assert.NotNil(t, provider.MeterProvider())
	assert.NotNil(t, provider.Handler())

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestTokenMetrics_Exported(t *testing.T) {
	provider, err := NewProvider()
	require.NoError(t, err)

	tm, err := NewTokenMetrics(provider.MeterProvider(), "deptaccess")
	require.NoError(t, err)

	ctx := context.Background()
	tm.RecordOperation(ctx, "verify_and_consume", StatusSuccess)
	tm.RecordOperation(ctx, "verify_and_consume", StatusRejected)
	tm.RecordOperation(ctx, "verify_and_consume", StatusRejected)
	tm.RecordDuration(ctx, "issue", 5*time.Millisecond, StatusSuccess)
	tm.RecordRejection(ctx, "verify_and_consume", "already_used")
	tm.RecordCleanup(ctx, 3)

	output := scrape(t, provider)

	assertMetricLine(t, output, "deptaccess_token_operations_total",
		[]string{`operation="verify_and_consume"`, `status="rejected"`}, "2")
	assertMetricLine(t, output, "deptaccess_token_operations_total",
		[]string{`operation="verify_and_consume"`, `status="success"`}, "1")
	assertMetricLine(t, output, "deptaccess_token_rejections_total",
		[]string{`operation="verify_and_consume"`, `reason="already_used"`}, "1")
	assertMetricLine(t, output, "deptaccess_token_cleanup_deleted_total", nil, "3")
	assert.Contains(t, output, "deptaccess_token_operation_duration_seconds")
}

func TestNoOpTokenMetrics(t *testing.T) {
	tm := NewNoOpTokenMetrics()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		tm.RecordOperation(ctx, "issue", StatusSuccess)
		tm.RecordDuration(ctx, "issue", time.Millisecond, StatusSuccess)
		tm.RecordRejection(ctx, "issue", "expired")
		tm.RecordCleanup(ctx, 1)
	})
}

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	provider, err := NewProvider()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "deptaccess"))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/items/1", "/items/2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusTeapot, w.Code)
	}

	output := scrape(t, provider)
	assertMetricLine(t, output, "deptaccess_http_requests_total",
		[]string{`method="GET"`, `path="/items/{id}"`, `status_code="418"`}, "2")
}
