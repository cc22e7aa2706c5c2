package llm

import (
	"context"
	"strings"
	"sync"
)

// StubGateway returns canned text. Used for local runs without provider
// credentials and in tests.
type StubGateway struct {
	mu    sync.Mutex
	Reply string
	Err   error
	Calls [][]Message
}

func (s *StubGateway) Generate(ctx context.Context, messages []Message, _ Options) (Generation, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, append([]Message(nil), messages...))
	reply, err := s.Reply, s.Err
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Generation{}, failure(ProviderStub, err)
	}
	if err != nil {
		return Generation{}, failure(ProviderStub, err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = "Thanks for your time! Reply anytime if you'd like to hear more."
	}
	return Generation{Text: reply, Provider: ProviderStub, TokensUsed: len(strings.Fields(reply))}, nil
}

// CallCount reports how many times Generate was invoked.
func (s *StubGateway) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
