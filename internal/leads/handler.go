package leads

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/internal/tenancy"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// Handler handles HTTP requests for leads
type Handler struct {
	repo     Repository
	registry *persona.Registry
	logger   *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, registry *persona.Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		registry: registry,
		logger:   logger,
	}
}

// CreateLead handles POST /admin/leads. The station comes from the request scope.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	stationID, ok := tenancy.StationIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing station scope", http.StatusBadRequest)
		return
	}
	req.StationID = stationID

	if err := req.Validate(h.registry); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create lead", "error", err)
		http.Error(w, "failed to create lead", http.StatusInternalServerError)
		return
	}

	h.logger.Info("lead created", "lead_id", lead.ID, "family", lead.Family, "station_id", lead.StationID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(lead)
}

// GetLead handles GET /admin/leads/{leadID}.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	lead, err := h.repo.GetByID(r.Context(), leadID)
	if err != nil || !tenancy.Allows(r.Context(), lead.StationID) {
		if err == nil || errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load lead", "error", err, "lead_id", leadID)
		http.Error(w, "failed to load lead", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(lead)
}
