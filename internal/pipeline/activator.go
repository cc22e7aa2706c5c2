package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// BenefitActivator grants a benefit outside the engine (airplay slot, contract, perks).
type BenefitActivator interface {
	Activate(ctx context.Context, lead *leads.Lead, benefit persona.Benefit) error
}

// LogActivator only logs. It is the default when no hook is configured.
type LogActivator struct {
	logger *logging.Logger
}

func NewLogActivator(logger *logging.Logger) *LogActivator {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogActivator{logger: logger}
}

func (a *LogActivator) Activate(ctx context.Context, lead *leads.Lead, benefit persona.Benefit) error {
	a.logger.Info("benefit activation hook (log only)", "lead_id", lead.ID, "station_id", lead.StationID, "benefit", benefit.Name)
	return nil
}

// HTTPActivator posts activations to a station webhook.
type HTTPActivator struct {
	url        string
	secret     string
	httpClient *http.Client
}

func NewHTTPActivator(url, secret string) *HTTPActivator {
	return &HTTPActivator{
		url:        strings.TrimSpace(url),
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type activationPayload struct {
	LeadID    string `json:"lead_id"`
	StationID string `json:"station_id"`
	Family    string `json:"family"`
	Name      string `json:"name"`
	Benefit   string `json:"benefit"`
	Stage     string `json:"stage"`
}

func (a *HTTPActivator) Activate(ctx context.Context, lead *leads.Lead, benefit persona.Benefit) error {
	body, err := json.Marshal(activationPayload{
		LeadID:    lead.ID,
		StationID: lead.StationID,
		Family:    string(lead.Family),
		Name:      lead.Name,
		Benefit:   benefit.Name,
		Stage:     string(benefit.Stage),
	})
	if err != nil {
		return fmt.Errorf("marshal activation: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", lead.ID+":"+benefit.Name)
	if a.secret != "" {
		req.Header.Set("Authorization", "Bearer "+a.secret)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("activation webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("activation webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
