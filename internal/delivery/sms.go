package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

const (
	ProviderTelnyx = "telnyx"
	ProviderTwilio = "twilio"

	defaultTelnyxBase = "https://api.telnyx.com"
	defaultTwilioBase = "https://api.twilio.com"
)

// TelnyxSender posts SMS messages using Telnyx's V2 API.
type TelnyxSender struct {
	apiKey             string
	messagingProfileID string
	from               string
	baseURL            string
	httpClient         *http.Client
	logger             *logging.Logger
}

// NewTelnyxSender builds a sender for Telnyx V2 API.
func NewTelnyxSender(apiKey, messagingProfileID, from string, logger *logging.Logger) *TelnyxSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TelnyxSender{
		apiKey:             apiKey,
		messagingProfileID: messagingProfileID,
		from:               from,
		baseURL:            defaultTelnyxBase,
		httpClient:         &http.Client{Timeout: 10 * time.Second},
		logger:             logger,
	}
}

// SetBaseURL overrides the API host (useful for testing).
func (s *TelnyxSender) SetBaseURL(base string) { s.baseURL = strings.TrimRight(base, "/") }

func (s *TelnyxSender) Send(ctx context.Context, req Request) Outcome {
	if s.apiKey == "" {
		return failed(ProviderTelnyx, ClassMisconfigured, errors.New("telnyx api key missing"))
	}
	if s.from == "" && s.messagingProfileID == "" {
		return failed(ProviderTelnyx, ClassMisconfigured, errors.New("telnyx from number or messaging profile required"))
	}

	ctx, span := tracer.Start(ctx, "delivery.telnyx.send")
	defer span.End()
	span.SetAttributes(attribute.String("to", req.To))

	payload := map[string]string{"to": req.To, "text": req.Content}
	if s.from != "" {
		payload["from"] = s.from
	}
	if s.messagingProfileID != "" {
		payload["messaging_profile_id"] = s.messagingProfileID
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return failed(ProviderTelnyx, ClassRejected, fmt.Errorf("marshal telnyx payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return failed(ProviderTelnyx, ClassRejected, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return failed(ProviderTelnyx, classifyErr(err), fmt.Errorf("telnyx send: %w", err))
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("telnyx send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		span.RecordError(err)
		return failed(ProviderTelnyx, classifyStatus(resp.StatusCode), err)
	}

	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &parsed)
	s.logger.Info("telnyx sms sent", "to", req.To, "provider_message_id", parsed.Data.ID)
	return delivered(ProviderTelnyx, parsed.Data.ID)
}

// TwilioSender posts SMS messages using Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(accountSID, authToken, from string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultTwilioBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SetBaseURL overrides the API host (useful for testing).
func (s *TwilioSender) SetBaseURL(base string) { s.baseURL = strings.TrimRight(base, "/") }

func (s *TwilioSender) Send(ctx context.Context, req Request) Outcome {
	if s.accountSID == "" || s.authToken == "" {
		return failed(ProviderTwilio, ClassMisconfigured, errors.New("twilio credentials missing"))
	}
	if s.from == "" {
		return failed(ProviderTwilio, ClassMisconfigured, errors.New("twilio from number missing"))
	}

	ctx, span := tracer.Start(ctx, "delivery.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("to", req.To))

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", s.from)
	form.Set("Body", req.Content)
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failed(ProviderTwilio, ClassRejected, err)
	}
	httpReq.SetBasicAuth(s.accountSID, s.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return failed(ProviderTwilio, classifyErr(err), fmt.Errorf("twilio send: %w", err))
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
		span.RecordError(err)
		return failed(ProviderTwilio, classifyStatus(resp.StatusCode), err)
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	_ = json.Unmarshal(body, &parsed)
	s.logger.Info("twilio sms sent", "to", req.To, "provider_message_id", parsed.SID)
	return delivered(ProviderTwilio, parsed.SID)
}

type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatTwilioError(status int, body []byte) string {
	var apiErr twilioAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Sprintf("status %d, code %d: %s", status, apiErr.Code, apiErr.Message)
	}
	return fmt.Sprintf("status %d", status)
}

// FailoverSender tries the primary provider, then the secondary when the primary did not deliver.
type FailoverSender struct {
	primary   Sender
	secondary Sender
	logger    *logging.Logger
}

func NewFailoverSender(primary, secondary Sender, logger *logging.Logger) *FailoverSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverSender{primary: primary, secondary: secondary, logger: logger}
}

func (f *FailoverSender) Send(ctx context.Context, req Request) Outcome {
	if f == nil || f.primary == nil {
		return failed("", ClassMisconfigured, errors.New("failover primary sender not configured"))
	}
	out := f.primary.Send(ctx, req)
	if out.Success || f.secondary == nil || out.Class == ClassRejected {
		return out
	}
	f.logger.Warn("primary sms send failed; attempting fallback",
		"provider", out.Provider,
		"class", out.Class,
		"error", out.Error,
		"to", req.To,
	)
	fallback := f.secondary.Send(ctx, req)
	if !fallback.Success {
		f.logger.Error("fallback sms send failed", "provider", fallback.Provider, "error", fallback.Error, "to", req.To)
	}
	return fallback
}
