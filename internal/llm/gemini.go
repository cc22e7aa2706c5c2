package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiGateway generates text through Google's Gemini API.
type GeminiGateway struct {
	client  *genai.Client
	modelID string
}

// NewGeminiGateway creates a Gemini-backed gateway.
func NewGeminiGateway(ctx context.Context, apiKey, modelID string) (*GeminiGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &GeminiGateway{client: client, modelID: modelID}, nil
}

func (g *GeminiGateway) Generate(ctx context.Context, messages []Message, opts Options) (Generation, error) {
	ctx, span := tracer.Start(ctx, "llm.gemini.generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.modelID), attribute.Int("llm.messages", len(messages)))

	system, turns := splitSystem(messages)
	if len(turns) == 0 {
		return Generation{}, &GenerationFailure{Provider: ProviderGemini, Kind: FailureProvider, Err: errors.New("at least one non-system message is required")}
	}

	model := g.client.GenerativeModel(g.modelID)
	if opts.Temperature >= 0 {
		model.SetTemperature(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if len(system) > 0 {
		model.SystemInstruction = genai.NewUserContent(genai.Text(strings.Join(system, "\n\n")))
	}

	cs := model.StartChat()
	for _, msg := range turns[:len(turns)-1] {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		err = failure(ProviderGemini, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send message failed")
		return Generation{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		err := malformed(ProviderGemini, "no candidates returned")
		span.RecordError(err)
		return Generation{}, err
	}

	candidate := resp.Candidates[0]
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		err := malformed(ProviderGemini, "candidate had no text")
		span.RecordError(err)
		return Generation{}, err
	}

	gen := Generation{Text: text, Provider: ProviderGemini, StopReason: candidate.FinishReason.String()}
	if resp.UsageMetadata != nil {
		gen.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	gen.TokensUsed = usageTotal(gen.Usage)
	return gen, nil
}

// Close releases the underlying client.
func (g *GeminiGateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
