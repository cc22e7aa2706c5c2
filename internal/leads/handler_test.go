package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/internal/tenancy"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

func newTestHandler() (*Handler, *InMemoryRepository) {
	repo := NewInMemoryRepository()
	return NewHandler(repo, persona.DefaultRegistry(), logging.Discard()), repo
}

func TestCreateLead_Success(t *testing.T) {
	handler, _ := newTestHandler()

	body, _ := json.Marshal(map[string]any{
		"family":  "artist",
		"name":    "Dee",
		"email":   "dee@example.com",
		"profile": map[string]string{"genre": "lo-fi"},
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/leads", bytes.NewReader(body))
	req = req.WithContext(tenancy.WithStationID(req.Context(), "kxrw"))
	w := httptest.NewRecorder()

	handler.CreateLead(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var lead Lead
	if err := json.NewDecoder(w.Body).Decode(&lead); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if lead.StationID != "kxrw" {
		t.Errorf("expected station kxrw, got %s", lead.StationID)
	}
	if lead.Stage != persona.StageDiscovered {
		t.Errorf("expected entry stage, got %s", lead.Stage)
	}
}

func TestCreateLead_InvalidRequest(t *testing.T) {
	handler, _ := newTestHandler()

	cases := map[string]string{
		"bad json":   "{",
		"no contact": `{"family":"sponsor","name":"Rosa"}`,
		"bad family": `{"family":"dj","phone":"+15555550100"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/leads", bytes.NewBufferString(body))
			req = req.WithContext(tenancy.WithStationID(req.Context(), "kxrw"))
			w := httptest.NewRecorder()
			handler.CreateLead(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestCreateLead_MissingStation(t *testing.T) {
	handler, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/admin/leads", bytes.NewBufferString(`{"family":"artist","phone":"+15555550100"}`))
	w := httptest.NewRecorder()
	handler.CreateLead(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetLead_ScopedToStation(t *testing.T) {
	handler, repo := newTestHandler()
	repo.Put(&Lead{ID: "lead-1", StationID: "kxrw", Family: persona.FamilyArtist})

	get := func(ctx context.Context, id string) int {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("leadID", id)
		req := httptest.NewRequest(http.MethodGet, "/admin/leads/"+id, nil)
		req = req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
		w := httptest.NewRecorder()
		handler.GetLead(w, req)
		return w.Code
	}

	if code := get(tenancy.WithStationID(context.Background(), "kxrw"), "lead-1"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := get(tenancy.WithStationID(context.Background(), "wfmu"), "lead-1"); code != http.StatusNotFound {
		t.Fatalf("expected 404 for other station, got %d", code)
	}
	if code := get(context.Background(), "missing"); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}
