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
	"time"
)

const (
	ProviderInstagram = "instagram"

	defaultGraphAPIBase = "https://graph.facebook.com/v18.0"
)

// InstagramSender sends direct messages via the Instagram/Meta Graph API.
type InstagramSender struct {
	pageAccessToken string
	graphAPIBase    string
	httpClient      *http.Client
}

func NewInstagramSender(pageAccessToken string) *InstagramSender {
	return &InstagramSender{
		pageAccessToken: pageAccessToken,
		graphAPIBase:    defaultGraphAPIBase,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (s *InstagramSender) SetGraphAPIBase(base string) {
	s.graphAPIBase = base
}

type graphSendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type graphSendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
	Error       *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (s *InstagramSender) Send(ctx context.Context, req Request) Outcome {
	if s.pageAccessToken == "" {
		return failed(ProviderInstagram, ClassMisconfigured, errors.New("instagram page access token missing"))
	}
	ctx, span := tracer.Start(ctx, "delivery.instagram.send")
	defer span.End()

	var payload graphSendRequest
	payload.Recipient.ID = req.To
	payload.Message.Text = req.Content
	body, err := json.Marshal(payload)
	if err != nil {
		return failed(ProviderInstagram, ClassRejected, fmt.Errorf("marshal send request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", s.graphAPIBase, url.QueryEscape(s.pageAccessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failed(ProviderInstagram, ClassRejected, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return failed(ProviderInstagram, classifyErr(err), fmt.Errorf("instagram send: %w", err))
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	var parsed graphSendResponse
	_ = json.Unmarshal(respBody, &parsed)
	if parsed.Error != nil {
		err := fmt.Errorf("instagram API error %d: %s", parsed.Error.Code, parsed.Error.Message)
		span.RecordError(err)
		return failed(ProviderInstagram, classifyStatus(resp.StatusCode), err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("instagram unexpected status %d", resp.StatusCode)
		span.RecordError(err)
		return failed(ProviderInstagram, classifyStatus(resp.StatusCode), err)
	}
	return delivered(ProviderInstagram, parsed.MessageID)
}
