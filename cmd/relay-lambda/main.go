// Command relay-lambda forwards replies captured by a station's inbox tooling to the
// internal outreach relay endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

const (
	relayPrefix = "/relay/leads/"
	relaySuffix = "/inbound"
	maxBodySize = 64 << 10
)

type config struct {
	upstreamBaseURL string
	upstreamTimeout time.Duration
	serviceToken    string
	stationID       string
}

func loadConfig() (config, error) {
	baseURL := strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL"))
	if baseURL == "" {
		return config{}, errors.New("UPSTREAM_BASE_URL is required")
	}
	token := strings.TrimSpace(os.Getenv("SERVICE_TOKEN"))
	if token == "" {
		return config{}, errors.New("SERVICE_TOKEN is required")
	}
	station := strings.TrimSpace(os.Getenv("STATION_ID"))
	if station == "" {
		return config{}, errors.New("STATION_ID is required")
	}

	// Turns wait on text generation and delivery upstream.
	timeout := 45 * time.Second
	if raw := strings.TrimSpace(os.Getenv("UPSTREAM_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	return config{
		upstreamBaseURL: strings.TrimRight(baseURL, "/"),
		upstreamTimeout: timeout,
		serviceToken:    token,
		stationID:       station,
	}, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	client := &http.Client{Timeout: cfg.upstreamTimeout}
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, cfg, client, evt)
	})
}

func handle(ctx context.Context, cfg config, client *http.Client, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	leadID, ok := leadIDFromPath(path)
	if !ok {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}
	if len(body) > maxBodySize {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusRequestEntityTooLarge}, nil
	}

	upstreamURL := cfg.upstreamBaseURL + "/internal/outreach/leads/" + url.PathEscape(leadID) + "/inbound"

	reqCtx, cancel := context.WithTimeout(ctx, cfg.upstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", cfg.serviceToken)
	req.Header.Set("X-Station-ID", cfg.stationID)
	if id := strings.TrimSpace(evt.RequestContext.RequestID); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	resp, err := client.Do(req)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadGateway, Body: "upstream error"}, nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	out := events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Headers:    map[string]string{},
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		out.Headers["content-type"] = ct
	}
	return out, nil
}

// leadIDFromPath extracts the lead from /relay/leads/{leadID}/inbound.
func leadIDFromPath(path string) (string, bool) {
	if !strings.HasPrefix(path, relayPrefix) || !strings.HasSuffix(path, relaySuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(path, relayPrefix), relaySuffix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}
