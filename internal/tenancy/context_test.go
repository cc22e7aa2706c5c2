package tenancy

import (
	"context"
	"testing"
)

func TestWithStationIDAndStationIDFromContext(t *testing.T) {
	ctx := WithStationID(context.Background(), "kxrw")

	got, ok := StationIDFromContext(ctx)
	if !ok {
		t.Fatalf("expected station id to be present")
	}
	if got != "kxrw" {
		t.Fatalf("expected kxrw, got %s", got)
	}
}

func TestStationIDFromContext_EmptyOrMissing(t *testing.T) {
	if _, ok := StationIDFromContext(context.Background()); ok {
		t.Fatalf("expected missing station id to return false")
	}
	ctx := context.WithValue(context.Background(), stationKey, 42)
	if _, ok := StationIDFromContext(ctx); ok {
		t.Fatalf("expected non-string station id to return false")
	}
	if _, ok := StationIDFromContext(WithStationID(context.Background(), "")); ok {
		t.Fatalf("expected empty station id to return false")
	}
}

func TestAllows(t *testing.T) {
	if !Allows(context.Background(), "kxrw") {
		t.Fatalf("unscoped request should see every station")
	}
	ctx := WithStationID(context.Background(), "kxrw")
	if !Allows(ctx, "kxrw") {
		t.Fatalf("expected own station to be visible")
	}
	if Allows(ctx, "wfmu") {
		t.Fatalf("expected other station to be hidden")
	}
}

func TestScopeSeesInnerStation(t *testing.T) {
	ctx, scope := WithScope(context.Background())
	if got := scope.StationID(); got != "" {
		t.Fatalf("expected empty scope, got %q", got)
	}

	inner := WithStationID(ctx, "kxrw")
	if got, _ := StationIDFromContext(inner); got != "kxrw" {
		t.Fatalf("expected inner context scoped, got %q", got)
	}
	if got := scope.StationID(); got != "kxrw" {
		t.Fatalf("expected scope to record station, got %q", got)
	}
	if _, ok := StationIDFromContext(ctx); ok {
		t.Fatalf("outer context must stay unscoped")
	}

	var nilScope *Scope
	if nilScope.StationID() != "" {
		t.Fatalf("nil scope should report no station")
	}
}
