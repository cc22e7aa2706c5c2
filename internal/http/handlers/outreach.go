package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/radio-ops-platform/internal/agent"
	"github.com/wolfman30/radio-ops-platform/internal/audit"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/llm"
	"github.com/wolfman30/radio-ops-platform/internal/observability/metrics"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/internal/tenancy"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

var validate = validator.New()

// AuditQuerier reads back recorded audit events.
type AuditQuerier interface {
	Query(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

// OutreachHandler exposes the agent operations to station operators.
type OutreachHandler struct {
	agents   *agent.Registry
	audit    AuditQuerier
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

type OutreachConfig struct {
	Agents   *agent.Registry
	Audit    AuditQuerier
	Gatherer prometheus.Gatherer
	Logger   *logging.Logger
}

func NewOutreachHandler(cfg OutreachConfig) *OutreachHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &OutreachHandler{
		agents:   cfg.Agents,
		audit:    cfg.Audit,
		gatherer: cfg.Gatherer,
		logger:   cfg.Logger,
	}
}

type outboundRequest struct {
	Intent  string `json:"intent" validate:"omitempty,max=64"`
	Channel string `json:"channel" validate:"required,oneof=sms email social"`
}

type inboundRequest struct {
	Text    string `json:"text" validate:"required,max=4000"`
	Channel string `json:"channel" validate:"required,oneof=sms email social"`
}

type channelRequest struct {
	Channel string `json:"channel" validate:"required,oneof=sms email social"`
}

type historyResponse struct {
	Conversation *conversation.Conversation `json:"conversation"`
	Messages     []conversation.Message     `json:"messages"`
}

// SendOutbound handles POST /admin/outreach/leads/{leadID}/outbound.
func (h *OutreachHandler) SendOutbound(w http.ResponseWriter, r *http.Request) {
	var req outboundRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, lead, ok := h.agentFor(w, r)
	if !ok {
		return
	}
	res, err := a.SendOutbound(r.Context(), lead.ID, persona.Intent(strings.TrimSpace(req.Intent)), conversation.Channel(req.Channel))
	h.writeTurn(w, res, err)
}

// HandleInbound handles POST /admin/outreach/leads/{leadID}/inbound.
func (h *OutreachHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	var req inboundRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, lead, ok := h.agentFor(w, r)
	if !ok {
		return
	}
	res, err := a.HandleInbound(r.Context(), lead.ID, req.Text, conversation.Channel(req.Channel))
	h.writeTurn(w, res, err)
}

// Redeliver handles POST /admin/outreach/leads/{leadID}/messages/{messageID}/redeliver.
func (h *OutreachHandler) Redeliver(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, lead, ok := h.agentFor(w, r)
	if !ok {
		return
	}
	res, err := a.Redeliver(r.Context(), lead.ID, conversation.Channel(req.Channel), chi.URLParam(r, "messageID"))
	h.writeTurn(w, res, err)
}

// EndConversation handles POST /admin/outreach/leads/{leadID}/end.
func (h *OutreachHandler) EndConversation(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, lead, ok := h.agentFor(w, r)
	if !ok {
		return
	}
	conv, err := a.EndConversation(r.Context(), lead.ID, conversation.Channel(req.Channel))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// GetConversation handles GET /admin/outreach/leads/{leadID}/conversation?channel=sms&limit=20.
func (h *OutreachHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	channel, err := conversation.ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}
	a, lead, ok := h.agentFor(w, r)
	if !ok {
		return
	}
	conv, msgs, err := a.History(r.Context(), lead.ID, channel, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Conversation: conv, Messages: msgs})
}

// Stats handles GET /admin/outreach/stats.
func (h *OutreachHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.TakeSnapshot(h.gatherer))
}

// ListEvents handles GET /admin/outreach/events?lead_id=&type=&since=&limit=.
func (h *OutreachHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		jsonError(w, "audit log not configured", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	filter := audit.Filter{StationID: q.Get("station_id"), LeadID: q.Get("lead_id")}
	if stationID, ok := tenancy.StationIDFromContext(r.Context()); ok {
		filter.StationID = stationID
	}
	if filter.StationID == "" {
		jsonError(w, "station_id required", http.StatusBadRequest)
		return
	}
	for _, t := range q["type"] {
		filter.Types = append(filter.Types, audit.EventType(t))
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			jsonError(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		jsonError(w, "failed to query events", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// agentFor resolves the lead's agent, hiding leads owned by another station.
func (h *OutreachHandler) agentFor(w http.ResponseWriter, r *http.Request) (*agent.Agent, *leads.Lead, bool) {
	leadID := chi.URLParam(r, "leadID")
	a, lead, err := h.agents.ForLead(r.Context(), leadID)
	if err != nil {
		h.writeError(w, err)
		return nil, nil, false
	}
	if !tenancy.Allows(r.Context(), lead.StationID) {
		jsonError(w, "lead not found", http.StatusNotFound)
		return nil, nil, false
	}
	return a, lead, true
}

func (h *OutreachHandler) writeTurn(w http.ResponseWriter, res *agent.Result, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	if df, ok := agent.IsDeliveryFailure(err); ok {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":      "delivery failed",
			"message_id": df.MessageID,
			"provider":   df.Provider,
			"class":      df.Class,
			"result":     res,
		})
		return
	}
	h.writeError(w, err)
}

func (h *OutreachHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("outreach request failed", "error", err, "status", status)
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	jsonError(w, msg, status)
}

func statusFor(err error) int {
	if _, ok := llm.IsGenerationFailure(err); ok {
		return http.StatusBadGateway
	}
	if _, ok := agent.IsDeliveryFailure(err); ok {
		return http.StatusBadGateway
	}
	switch {
	case errors.Is(err, agent.ErrNoRecipientAddress):
		return http.StatusUnprocessableEntity
	case errors.Is(err, leads.ErrLeadNotFound),
		errors.Is(err, conversation.ErrConversationNotFound),
		errors.Is(err, conversation.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrNotRedeliverable),
		errors.Is(err, conversation.ErrDuplicateActiveConversation):
		return http.StatusConflict
	case errors.Is(err, persona.ErrUnknownIntent),
		errors.Is(err, persona.ErrUnknownFamily),
		errors.Is(err, conversation.ErrUnknownChannel),
		errors.Is(err, agent.ErrEmptyInbound),
		errors.Is(err, agent.ErrUnsupportedChannel),
		errors.Is(err, agent.ErrFamilyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, "invalid json", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
