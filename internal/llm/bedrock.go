package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("radio.internal.llm")

// BedrockConverseAPI is the subset of the bedrockruntime client the gateway uses.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockGateway generates text through the Bedrock Converse API.
type BedrockGateway struct {
	api     BedrockConverseAPI
	modelID string
}

func NewBedrockGateway(api BedrockConverseAPI, modelID string) (*BedrockGateway, error) {
	if api == nil {
		return nil, errors.New("llm: bedrock converse client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("llm: bedrock model id is required")
	}
	return &BedrockGateway{api: api, modelID: modelID}, nil
}

func (g *BedrockGateway) Generate(ctx context.Context, messages []Message, opts Options) (Generation, error) {
	ctx, span := tracer.Start(ctx, "llm.bedrock.generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.modelID), attribute.Int("llm.messages", len(messages)))

	system, turns := splitSystem(messages)
	systemBlocks := make([]brtypes.SystemContentBlock, 0, len(system))
	for _, block := range system {
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: block})
	}

	converse := make([]brtypes.Message, 0, len(turns))
	for _, msg := range turns {
		role := brtypes.ConversationRoleUser
		switch msg.Role {
		case RoleUser:
		case RoleAssistant:
			role = brtypes.ConversationRoleAssistant
		default:
			return Generation{}, &GenerationFailure{Provider: ProviderBedrock, Kind: FailureProvider, Err: fmt.Errorf("unsupported role %q", msg.Role)}
		}
		converse = append(converse, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: msg.Content}},
		})
	}

	inference := &brtypes.InferenceConfiguration{}
	if opts.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(opts.MaxTokens))
	}
	if opts.Temperature >= 0 {
		inference.Temperature = aws.Float32(opts.Temperature)
	}

	out, err := g.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(g.modelID),
		System:          systemBlocks,
		Messages:        converse,
		InferenceConfig: inference,
	})
	if err != nil {
		err = failure(ProviderBedrock, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "converse failed")
		return Generation{}, err
	}

	text, err := bedrockOutputText(out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed output")
		return Generation{}, err
	}

	gen := Generation{Text: text, Provider: ProviderBedrock, StopReason: string(out.StopReason)}
	if out.Usage != nil {
		gen.Usage = Usage{
			InputTokens:  int(int32OrZero(out.Usage.InputTokens)),
			OutputTokens: int(int32OrZero(out.Usage.OutputTokens)),
			TotalTokens:  int(int32OrZero(out.Usage.TotalTokens)),
		}
	}
	gen.TokensUsed = usageTotal(gen.Usage)
	span.SetAttributes(attribute.Int("llm.tokens", gen.TokensUsed))
	return gen, nil
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", malformed(ProviderBedrock, "converse output was empty")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", malformed(ProviderBedrock, "unexpected converse output type %T", out.Output)
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", malformed(ProviderBedrock, "converse output had no text")
	}
	return text, nil
}

func int32OrZero(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
