// Package tenancy carries the station (tenant) scope of a request.
package tenancy

import (
	"context"
	"sync"
)

type ctxKey string

const stationKey ctxKey = "radio.station_id"

// StationHeader lets trusted internal callers scope a request to one station.
const StationHeader = "X-Station-ID"

// WithStationID stores the station id in context and notes it on the request Scope, if any.
func WithStationID(ctx context.Context, stationID string) context.Context {
	if s, ok := ctx.Value(scopeKey).(*Scope); ok {
		s.set(stationID)
	}
	return context.WithValue(ctx, stationKey, stationID)
}

// StationIDFromContext extracts the station id if present.
func StationIDFromContext(ctx context.Context) (string, bool) {
	stationID, ok := ctx.Value(stationKey).(string)
	return stationID, ok && stationID != ""
}

// Allows reports whether a resource owned by ownerStationID is visible in ctx.
// Requests without a station scope see every station.
func Allows(ctx context.Context, ownerStationID string) bool {
	scoped, ok := StationIDFromContext(ctx)
	return !ok || scoped == ownerStationID
}

// Scope records the station a request ends up scoped to, so outer middleware can see a scope set
// further down the chain.
type Scope struct {
	mu      sync.Mutex
	station string
}

const scopeKey ctxKey = "radio.scope"

// WithScope attaches an empty Scope to ctx.
func WithScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{}
	return context.WithValue(ctx, scopeKey, s), s
}

// StationID returns the recorded station, or "".
func (s *Scope) StationID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.station
}

func (s *Scope) set(stationID string) {
	s.mu.Lock()
	s.station = stationID
	s.mu.Unlock()
}
