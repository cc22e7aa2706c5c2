package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures the OpenAI-compatible gateway. BaseURL allows
// self-hosted compatible endpoints.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIGateway generates text through the chat completions API.
type OpenAIGateway struct {
	client *openai.Client
	model  string
}

func NewOpenAIGateway(cfg OpenAIConfig) (*OpenAIGateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: openai api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultOpenAIModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	return &OpenAIGateway{client: openai.NewClientWithConfig(clientCfg), model: cfg.Model}, nil
}

func (g *OpenAIGateway) Generate(ctx context.Context, messages []Message, opts Options) (Generation, error) {
	ctx, span := tracer.Start(ctx, "llm.openai.generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.model), attribute.Int("llm.messages", len(messages)))

	system, turns := splitSystem(messages)
	chat := make([]openai.ChatCompletionMessage, 0, len(system)+len(turns))
	for _, block := range system {
		chat = append(chat, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: block})
	}
	for _, msg := range turns {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chat = append(chat, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	req := openai.ChatCompletionRequest{Model: g.model, Messages: chat, MaxTokens: opts.MaxTokens}
	if opts.Temperature >= 0 {
		req.Temperature = opts.Temperature
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		err = failure(ProviderOpenAI, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return Generation{}, err
	}
	if len(resp.Choices) == 0 {
		err := malformed(ProviderOpenAI, "no choices returned")
		span.RecordError(err)
		return Generation{}, err
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		err := malformed(ProviderOpenAI, "choice had no content")
		span.RecordError(err)
		return Generation{}, err
	}

	gen := Generation{
		Text:       text,
		Provider:   ProviderOpenAI,
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	gen.TokensUsed = usageTotal(gen.Usage)
	span.SetAttributes(attribute.Int("llm.tokens", gen.TokensUsed))
	return gen, nil
}
