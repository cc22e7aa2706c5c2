package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/radio-ops-platform/internal/config"
	"github.com/wolfman30/radio-ops-platform/internal/llm"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// BuildLLMGateway wires the configured text generation provider. Bedrock without a model id
// falls back to the stub gateway outside production.
func BuildLLMGateway(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (llm.Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	settings := llm.Settings{
		Provider:       provider,
		BedrockModelID: cfg.BedrockModelID,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModelID:  cfg.GeminiModelID,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModelID:  cfg.OpenAIModelID,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
	}

	var bedrock llm.BedrockConverseAPI
	if provider == "" || provider == llm.ProviderBedrock {
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			if cfg.Env == "production" {
				return nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required")
			}
			logger.Warn("no Bedrock model configured; using stub text generation")
			return &llm.StubGateway{Reply: "Thanks for your time! We'll be in touch soon."}, nil
		}
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: bedrock requires aws config")
		}
		bedrock = bedrockruntime.NewFromConfig(*awsCfg)
	}

	gateway, err := llm.New(ctx, settings, bedrock)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build llm gateway: %w", err)
	}
	logger.Info("text generation enabled", "provider", settings.Provider)
	return gateway, nil
}
