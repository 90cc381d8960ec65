package subagent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mimamori-ai/call-bridge/internal/llm"
)

var (
	// ErrUnavailable indicates the backing LLM could not be reached.
	ErrUnavailable = errors.New("subagent: llm unavailable")

	// ErrMalformedResponse indicates the LLM replied in an unusable shape.
	ErrMalformedResponse = errors.New("subagent: malformed llm response")
)

// HaikuAgent composes a short seasonal poem on request.
type HaikuAgent struct {
	llm   llm.Client
	model string
}

// NewHaikuAgent creates a haiku agent using the given LLM client and model.
func NewHaikuAgent(client llm.Client, model string) *HaikuAgent {
	return &HaikuAgent{llm: client, model: model}
}

const haikuSystemPrompt = `You are a gentle poet speaking with an elderly person on the phone. Compose a single haiku in the 5-7-5 form about the topic you are given, warm in tone and easy to follow when read aloud. Reply with the haiku only.`

// Compose writes a haiku about the given topic. It returns ErrUnavailable
// when the LLM call fails and ErrMalformedResponse when the reply is empty.
func (a *HaikuAgent) Compose(ctx context.Context, topic string) (string, error) {
	if topic == "" {
		topic = "the current season"
	}

	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Model:       a.model,
		Temperature: 0.8,
		MaxTokens:   256,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: haikuSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Topic: %s", topic)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	poem := strings.TrimSpace(resp.Content)
	if poem == "" {
		return "", ErrMalformedResponse
	}

	return poem, nil
}
