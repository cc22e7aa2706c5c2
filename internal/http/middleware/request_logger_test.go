package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/radio-ops-platform/internal/tenancy"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

func TestRequestLoggerRecordsStatusAndStation(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("debug", &buf)

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	req := httptest.NewRequest(http.MethodPost, "/admin/outreach/leads/l1/outbound", nil)
	req = req.WithContext(tenancy.WithStationID(req.Context(), "kxrw"))
	req.Header.Set("X-Request-Id", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"request completed", "502", "kxrw", "req-42", "WARN"} {
		assert.Contains(t, out, want)
	}
}

func TestRequestLoggerSeesStationSetDownstream(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)

	// Stands in for auth middleware that scopes the request after the logger runs.
	scoping := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(tenancy.WithStationID(r.Context(), "wfmu")))
		})
	}
	h := RequestLogger(logger)(scoping(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/leads/l1", nil))

	out := buf.String()
	assert.Contains(t, out, `"station_id":"wfmu"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, "INFO")
}

func TestRequestLoggerQuietsProbes(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(logging.NewWithWriter("info", &buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Empty(t, buf.String())
}
