package router

import (
	"net/http"
	"strings"

	"github.com/wolfman30/radio-ops-platform/internal/tenancy"
)

// requireStationID enforces the station header on internal relay requests.
func requireStationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stationID := strings.TrimSpace(r.Header.Get(tenancy.StationHeader))
		if stationID == "" {
			http.Error(w, "missing "+tenancy.StationHeader, http.StatusBadRequest)
			return
		}
		ctx := tenancy.WithStationID(r.Context(), stationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
