package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/radio-ops-platform/internal/agent"
	"github.com/wolfman30/radio-ops-platform/internal/audit"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/llm"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/internal/tenancy"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

func TestStatusFor(t *testing.T) {
	turn := func(err error) error {
		return &agent.TurnError{Op: agent.OpSendOutbound, LeadID: "l1", Channel: conversation.ChannelSMS, Err: err}
	}
	cases := []struct {
		err  error
		want int
	}{
		{turn(agent.ErrNoRecipientAddress), http.StatusUnprocessableEntity},
		{turn(&llm.GenerationFailure{Provider: "bedrock", Kind: llm.FailureTimeout, Err: context.DeadlineExceeded}), http.StatusBadGateway},
		{turn(&agent.DeliveryFailure{MessageID: "m1"}), http.StatusBadGateway},
		{leads.ErrLeadNotFound, http.StatusNotFound},
		{turn(conversation.ErrConversationNotFound), http.StatusNotFound},
		{turn(agent.ErrNotRedeliverable), http.StatusConflict},
		{turn(fmt.Errorf("%w %q", persona.ErrUnknownIntent, "x")), http.StatusBadRequest},
		{turn(agent.ErrEmptyInbound), http.StatusBadRequest},
		{turn(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	h := NewOutreachHandler(OutreachConfig{Logger: logging.Discard()})
	rec := httptest.NewRecorder()
	h.writeError(rec, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal error", body["error"])
}

func TestListEvents(t *testing.T) {
	log := audit.NewMemoryLog()
	ctx := context.Background()
	require.NoError(t, log.Record(ctx, audit.Event{Type: audit.EventMessageSent, StationID: "kxrw", LeadID: "l1"}))
	require.NoError(t, log.Record(ctx, audit.Event{Type: audit.EventMessageSent, StationID: "wfmu", LeadID: "l2"}))
	h := NewOutreachHandler(OutreachConfig{Audit: log, Logger: logging.Discard()})

	rec := httptest.NewRecorder()
	h.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/admin/outreach/events", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/outreach/events?station_id=wfmu&limit=5", nil)
	req = req.WithContext(tenancy.WithStationID(req.Context(), "kxrw"))
	rec = httptest.NewRecorder()
	h.ListEvents(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Events []audit.Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "l1", body.Events[0].LeadID)

	rec = httptest.NewRecorder()
	h.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/admin/outreach/events?station_id=kxrw&since=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonError(rec, "oops", http.StatusTeapot)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content type application/json, got %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode json response: %v", err)
	}
	if body["error"] != "oops" {
		t.Fatalf("unexpected error message %q", body["error"])
	}
}
