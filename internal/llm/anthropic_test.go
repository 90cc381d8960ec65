package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestConvertMessagesHoistsSystemPrompt(t *testing.T) {
	system, messages := convertMessages([]ChatMessage{
		{Role: "system", Content: "you rank events"},
		{Role: "user", Content: "pick the best one"},
	})

	if len(system) != 1 {
		t.Fatalf("system blocks = %d, want 1", len(system))
	}
	if system[0].Text.Value != "you rank events" {
		t.Errorf("system text = %q", system[0].Text.Value)
	}

	if len(messages) != 1 {
		t.Fatalf("messages = %d, want 1 (no system role in turns)", len(messages))
	}
	if messages[0].Role.Value != anthropic.MessageParamRoleUser {
		t.Errorf("turn role = %q, want user", messages[0].Role.Value)
	}
}

func TestConvertMessagesWithoutSystemPrompt(t *testing.T) {
	system, messages := convertMessages([]ChatMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})

	if len(system) != 0 {
		t.Errorf("system blocks = %d, want 0", len(system))
	}
	if len(messages) != 2 {
		t.Errorf("messages = %d, want 2", len(messages))
	}
}
