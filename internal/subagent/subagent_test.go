package subagent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mimamori-ai/call-bridge/internal/llm"
	"github.com/mimamori-ai/call-bridge/internal/model"
)

type scriptedLLM struct {
	content string
	err     error
	lastReq *llm.CompletionRequest
}

func (s *scriptedLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}
func (s *scriptedLLM) Name() string     { return "scripted" }
func (s *scriptedLLM) Models() []string { return nil }

type capturingEvents struct {
	from, to time.Time
	limit    int
	events   []model.LocalEvent
	err      error
}

func (c *capturingEvents) UpcomingByRegion(ctx context.Context, region string, from, to time.Time, limit int) ([]model.LocalEvent, error) {
	c.from, c.to, c.limit = from, to, limit
	return c.events, c.err
}

func makeEvents(ids ...string) []model.LocalEvent {
	out := make([]model.LocalEvent, len(ids))
	for i, id := range ids {
		out[i] = model.LocalEvent{ID: id, Title: "Event " + id}
	}
	return out
}

func TestFinderWindow(t *testing.T) {
	repo := &capturingEvents{}
	finder := NewEventFinder(repo)
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	finder.now = func() time.Time { return base }

	if _, err := finder.Find(context.Background(), "Nagano"); err != nil {
		t.Fatalf("Find: %v", err)
	}

	if want := base.AddDate(0, 0, 7); !repo.from.Equal(want) {
		t.Errorf("from = %v, want %v", repo.from, want)
	}
	if want := base.AddDate(0, 0, 28); !repo.to.Equal(want) {
		t.Errorf("to = %v, want %v", repo.to, want)
	}
	if repo.limit != maxCandidates {
		t.Errorf("limit = %d, want %d", repo.limit, maxCandidates)
	}
}

func TestFinderRequiresRegion(t *testing.T) {
	finder := NewEventFinder(&capturingEvents{})
	if _, err := finder.Find(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty region")
	}
}

func TestFinderCapsCandidates(t *testing.T) {
	ids := make([]string, maxCandidates+20)
	for i := range ids {
		ids[i] = "evt"
	}
	repo := &capturingEvents{events: makeEvents(ids...)}
	finder := NewEventFinder(repo)

	got, err := finder.Find(context.Background(), "Nagano")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != maxCandidates {
		t.Errorf("got %d candidates, want %d", len(got), maxCandidates)
	}
}

func TestParseRankingLenient(t *testing.T) {
	candidates := makeEvents("evt-1", "evt-2", "evt-3")

	output := `Here are my picks:
1. evt-3 - loves music
2) evt-1: morning person
some commentary the model added
3. evt-9 - does not exist
4. evt-3 - duplicate
5. evt-2`

	ranked := parseRanking(output, candidates)

	if len(ranked) != 3 {
		t.Fatalf("ranked %d, want 3", len(ranked))
	}
	if ranked[0].Event.ID != "evt-3" || ranked[1].Event.ID != "evt-1" || ranked[2].Event.ID != "evt-2" {
		t.Errorf("order wrong: %s %s %s", ranked[0].Event.ID, ranked[1].Event.ID, ranked[2].Event.ID)
	}
	if ranked[0].Reason != "loves music" {
		t.Errorf("reason = %q", ranked[0].Reason)
	}
	// Ordinals are sequential regardless of the model's numbering.
	for i, r := range ranked {
		if r.Ordinal != i+1 {
			t.Errorf("ordinal[%d] = %d", i, r.Ordinal)
		}
	}
}

func TestRankTruncatesToCount(t *testing.T) {
	llmClient := &scriptedLLM{content: "1. evt-1\n2. evt-2\n3. evt-3"}
	ranker := NewEventRanker(llmClient, "test-model")

	ranked, err := ranker.Rank(context.Background(), nil, "ctx", makeEvents("evt-1", "evt-2", "evt-3"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 2 {
		t.Errorf("got %d, want 2", len(ranked))
	}
	if llmClient.lastReq.Model != "test-model" {
		t.Errorf("model = %q", llmClient.lastReq.Model)
	}
}

func TestRankUnusableOutput(t *testing.T) {
	llmClient := &scriptedLLM{content: "I cannot rank these events, sorry."}
	ranker := NewEventRanker(llmClient, "test-model")

	_, err := ranker.Rank(context.Background(), nil, "ctx", makeEvents("evt-1"), 3)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	ranker := NewEventRanker(&scriptedLLM{}, "test-model")
	ranked, err := ranker.Rank(context.Background(), nil, "ctx", nil, 3)
	if err != nil || ranked != nil {
		t.Errorf("empty candidates should be a quiet no-op, got %v, %v", ranked, err)
	}
}

func TestRankPromptCarriesCallerProfile(t *testing.T) {
	llmClient := &scriptedLLM{content: "1. evt-1"}
	ranker := NewEventRanker(llmClient, "test-model")

	user := &model.UserContext{Name: "Hanako", Gender: "female", Region: "Nagano"}
	if _, err := ranker.Rank(context.Background(), user, "likes music", makeEvents("evt-1"), 1); err != nil {
		t.Fatalf("Rank: %v", err)
	}

	prompt := llmClient.lastReq.Messages[1].Content
	for _, want := range []string{"Hanako", "female", "Nagano", "likes music"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q: %q", want, prompt)
		}
	}
}

func TestOrdinalFromSelection(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"the first one", 1},
		{"I'd like the second one please", 2},
		{"number 3", 3},
		{"the last one", -1},
		{"hmm, not sure", 0},
	}
	for _, tc := range cases {
		if got := OrdinalFromSelection(tc.in); got != tc.want {
			t.Errorf("OrdinalFromSelection(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHaikuCompose(t *testing.T) {
	llmClient := &scriptedLLM{content: "  autumn wind whispers\nthrough the quiet garden gate\nleaves begin to dance  "}
	haiku := NewHaikuAgent(llmClient, "test-model")

	poem, err := haiku.Compose(context.Background(), "autumn")
	if err != nil {
		t.Fatal(err)
	}
	if poem != "autumn wind whispers\nthrough the quiet garden gate\nleaves begin to dance" {
		t.Errorf("poem not trimmed: %q", poem)
	}
	if llmClient.lastReq.Temperature != 0.8 {
		t.Errorf("temperature = %v", llmClient.lastReq.Temperature)
	}
}

func TestHaikuErrors(t *testing.T) {
	haiku := NewHaikuAgent(&scriptedLLM{err: errors.New("down")}, "test-model")
	if _, err := haiku.Compose(context.Background(), "autumn"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}

	haiku = NewHaikuAgent(&scriptedLLM{content: "   "}, "test-model")
	if _, err := haiku.Compose(context.Background(), "autumn"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}
