package llm

import (
	"context"
	"fmt"
	"strings"
)

// Settings selects and configures one backend. Selection is static per process.
type Settings struct {
	Provider       string
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
	OpenAIAPIKey   string
	OpenAIModelID  string
	OpenAIBaseURL  string
}

// New builds the configured gateway. bedrock may be nil unless the bedrock provider is selected.
func New(ctx context.Context, s Settings, bedrock BedrockConverseAPI) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", ProviderBedrock:
		return NewBedrockGateway(bedrock, s.BedrockModelID)
	case ProviderGemini:
		return NewGeminiGateway(ctx, s.GeminiAPIKey, s.GeminiModelID)
	case ProviderOpenAI:
		return NewOpenAIGateway(OpenAIConfig{APIKey: s.OpenAIAPIKey, Model: s.OpenAIModelID, BaseURL: s.OpenAIBaseURL})
	case ProviderStub:
		return &StubGateway{}, nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", s.Provider)
	}
}
