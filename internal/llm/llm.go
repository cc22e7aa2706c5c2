// Package llm is the text-generation gateway: one interface over Bedrock, Gemini and OpenAI.
package llm

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderStub    = "stub"
)

// Message is one {role, content} entry of a prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single generation. A negative Temperature leaves the provider default.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Usage reports token accounting for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Generation is the gateway's provider-neutral response.
type Generation struct {
	Text       string
	TokensUsed int
	Usage      Usage
	StopReason string
	Provider   string
}

// Gateway generates text from an ordered message list. Implementations never retry;
// every failure is returned as a *GenerationFailure.
type Gateway interface {
	Generate(ctx context.Context, messages []Message, opts Options) (Generation, error)
}

// splitSystem separates system prompts from the conversational turns.
func splitSystem(messages []Message) ([]string, []Message) {
	var system []string
	turns := make([]Message, 0, len(messages))
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		if msg.Role == RoleSystem {
			system = append(system, content)
			continue
		}
		turns = append(turns, Message{Role: msg.Role, Content: content})
	}
	return system, turns
}

func usageTotal(u Usage) int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.InputTokens + u.OutputTokens
}
