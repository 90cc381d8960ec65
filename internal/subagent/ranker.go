package subagent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mimamori-ai/call-bridge/internal/llm"
	"github.com/mimamori-ai/call-bridge/internal/model"
)

// EventRanker orders candidate events by relevance to the conversation so
// far, using an LLM to judge fit.
type EventRanker struct {
	llm   llm.Client
	model string
}

// NewEventRanker creates a ranker using the given LLM client and model.
func NewEventRanker(client llm.Client, model string) *EventRanker {
	return &EventRanker{llm: client, model: model}
}

// rankLine matches one ranked entry: "1. evt-123 - likes walking".
// The reason part is optional.
var rankLine = regexp.MustCompile(`^\s*(\d+)[.)]\s*(\S+)(?:\s*[-:]\s*(.*))?$`)

// Rank returns the top count events ordered by fit to the conversation
// context. The LLM's ordering is taken as-is; entries referencing unknown
// event IDs are skipped and duplicates keep their first position.
func (r *EventRanker) Rank(ctx context.Context, user *model.UserContext, conversationContext string, candidates []model.LocalEvent, count int) ([]model.RankedEvent, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if count <= 0 {
		count = 3
	}

	resp, err := r.llm.Complete(ctx, &llm.CompletionRequest{
		Model:       r.model,
		Temperature: 0.2,
		MaxTokens:   1024,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: rankerSystemPrompt},
			{Role: "user", Content: r.buildPrompt(user, conversationContext, candidates, count)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ranking events: %w", err)
	}

	ranked := parseRanking(resp.Content, candidates)
	if len(ranked) == 0 {
		return nil, ErrMalformedResponse
	}
	if len(ranked) > count {
		ranked = ranked[:count]
	}

	return ranked, nil
}

const rankerSystemPrompt = `You rank local community events for an elderly caller based on what they said during a phone conversation. Respond with one line per event, best match first, in the form:
1. EVENT_ID - short reason
Output nothing else.`

func (r *EventRanker) buildPrompt(user *model.UserContext, conversationContext string, candidates []model.LocalEvent, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pick the %d most suitable events.\n\n", count)
	if user != nil {
		fmt.Fprintf(&b, "Caller: %s", user.Name)
		if age := user.Age(time.Now()); age > 0 {
			fmt.Fprintf(&b, ", age %d", age)
		}
		if user.Gender != "" {
			fmt.Fprintf(&b, ", %s", user.Gender)
		}
		if user.Region != "" {
			fmt.Fprintf(&b, ", lives in %s", user.Region)
		}
		b.WriteString("\n")
	}
	if conversationContext != "" {
		fmt.Fprintf(&b, "Conversation so far: %s\n", conversationContext)
	}

	b.WriteString("\nCandidate events:\n")
	for _, ev := range candidates {
		fmt.Fprintf(&b, "- %s: %s (%s, %s)\n",
			ev.ID, ev.Title, ev.Venue, ev.StartsAt.Format("Jan 2"))
	}

	return b.String()
}

// parseRanking extracts ranked events from the model output. Lines that do
// not match the expected shape or reference unknown IDs are skipped, and a
// repeated ID keeps only its first occurrence. Ordinals are reassigned
// sequentially so callers can speak "the first one", "the second one".
func parseRanking(output string, candidates []model.LocalEvent) []model.RankedEvent {
	byID := make(map[string]model.LocalEvent, len(candidates))
	for _, ev := range candidates {
		byID[ev.ID] = ev
	}

	seen := make(map[string]bool)
	var ranked []model.RankedEvent

	for _, line := range strings.Split(output, "\n") {
		m := rankLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		id := strings.TrimSpace(m[2])
		ev, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true

		ranked = append(ranked, model.RankedEvent{
			Ordinal: len(ranked) + 1,
			Reason:  strings.TrimSpace(m[3]),
			Event:   ev,
		})
	}

	return ranked
}

// OrdinalFromSelection extracts a 1-based position from a caller's spoken
// selection, such as "the second one" or "number 2". It returns 0 when no
// position can be determined.
func OrdinalFromSelection(selection string) int {
	s := strings.ToLower(selection)

	words := map[string]int{
		"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
		"last": -1,
	}
	for word, n := range words {
		if strings.Contains(s, word) {
			return n
		}
	}

	if m := regexp.MustCompile(`\d+`).FindString(s); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			return n
		}
	}

	return 0
}
