package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// FailureKind classifies why a generation failed.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureProvider    FailureKind = "provider_error"
	FailureMalformed   FailureKind = "malformed_response"
)

// GenerationFailure is the only error type a Gateway returns.
type GenerationFailure struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("llm: %s generation failed (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// Retryable reports whether a caller may reasonably try again later.
func (e *GenerationFailure) Retryable() bool {
	return e.Kind == FailureTimeout || e.Kind == FailureRateLimited
}

// IsGenerationFailure unwraps err into a *GenerationFailure.
func IsGenerationFailure(err error) (*GenerationFailure, bool) {
	var gf *GenerationFailure
	if errors.As(err, &gf) {
		return gf, true
	}
	return nil, false
}

func malformed(provider, format string, args ...any) error {
	return &GenerationFailure{Provider: provider, Kind: FailureMalformed, Err: fmt.Errorf(format, args...)}
}

// failure wraps a backend error, classifying timeouts and throttling.
func failure(provider string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := IsGenerationFailure(err); ok {
		return err
	}
	return &GenerationFailure{Provider: provider, Kind: classify(err), Err: err}
}

type errorCoder interface {
	ErrorCode() string
}

func classify(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return FailureRateLimited
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return FailureRateLimited
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return FailureRateLimited
	}
	var coded errorCoder
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			return FailureRateLimited
		case "ModelTimeoutException", "RequestTimeout":
			return FailureTimeout
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "resource exhausted"), strings.Contains(msg, "resourceexhausted"), strings.Contains(msg, "rate limit"):
		return FailureRateLimited
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return FailureTimeout
	}
	return FailureProvider
}
