package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/radio-ops-platform/internal/tenancy"
)

func TestRequireStationIDPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stationID, ok := tenancy.StationIDFromContext(r.Context())
		if !ok || stationID != "kxrw" {
			t.Fatalf("expected station id propagated, got %s / %v", stationID, ok)
		}
		w.WriteHeader(http.StatusTeapot)
	})

	handler := requireStationID(next)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(tenancy.StationHeader, "kxrw")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected downstream status, got %d", rr.Code)
	}
}

func TestRequireStationIDMissingHeader(t *testing.T) {
	handler := requireStationID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing station, got %d", rr.Code)
	}
}

func TestRequireServiceToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name     string
		expected string
		sent     string
		want     int
	}{
		{"closed when unset", "", "anything", http.StatusUnauthorized},
		{"missing", "s3cret", "", http.StatusUnauthorized},
		{"wrong", "s3cret", "nope", http.StatusUnauthorized},
		{"match", "s3cret", "s3cret", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal", nil)
			if tc.sent != "" {
				req.Header.Set(serviceTokenHeader, tc.sent)
			}
			rr := httptest.NewRecorder()
			requireServiceToken(tc.expected)(ok).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
