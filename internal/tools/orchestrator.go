package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mimamori-ai/call-bridge/internal/model"
	"github.com/mimamori-ai/call-bridge/internal/subagent"
	"github.com/mimamori-ai/call-bridge/pkg/logger"
	"github.com/mimamori-ai/call-bridge/pkg/metrics"
)

// UpstreamSender is the slice of the realtime client the orchestrator needs
// to deliver results.
type UpstreamSender interface {
	SendToolOutput(callID, output string) error
	CreateResponse(instructions string) error
}

// EventPublisher records tool activity on the call event stream.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.CallEvent)
}

// Orchestrator executes tool calls for one call session. Each dispatch runs
// in its own goroutine so tool latency never blocks the audio path; every
// dispatch ends with exactly one tool output and one response request, so
// the agent always speaks about the outcome, including failures.
type Orchestrator struct {
	upstream  UpstreamSender
	session   *model.CallSession
	finder    *subagent.EventFinder
	ranker    *subagent.EventRanker
	haiku     *subagent.HaikuAgent
	publisher EventPublisher
	logger    *logger.Logger
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an orchestrator for one call session. The given
// context bounds all tool work; cancelling it aborts in-flight tools.
func NewOrchestrator(ctx context.Context, upstream UpstreamSender, session *model.CallSession, finder *subagent.EventFinder, ranker *subagent.EventRanker, haiku *subagent.HaikuAgent, publisher EventPublisher, timeout time.Duration, log *logger.Logger) *Orchestrator {
	oCtx, cancel := context.WithCancel(ctx)
	return &Orchestrator{
		upstream:  upstream,
		session:   session,
		finder:    finder,
		ranker:    ranker,
		haiku:     haiku,
		publisher: publisher,
		logger:    log,
		timeout:   timeout,
		ctx:       oCtx,
		cancel:    cancel,
	}
}

// Dispatch starts the requested tool in a tracked goroutine and returns
// immediately.
func (o *Orchestrator) Dispatch(req *model.ToolCallRequest) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(req)
	}()
}

// Shutdown cancels in-flight tools and waits for their goroutines to exit.
func (o *Orchestrator) Shutdown() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) run(req *model.ToolCallRequest) {
	ctx, cancel := context.WithTimeout(o.ctx, o.timeout)
	defer cancel()

	start := time.Now()

	var output, followUp string
	var err error

	switch req.Name {
	case ToolSearchEvents:
		output, followUp, err = o.searchEvents(ctx, req.Arguments)
	case ToolGetEventDetails:
		output, err = o.getEventDetails(ctx, req.Arguments)
	case ToolRequestHaiku:
		output, err = o.requestHaiku(ctx, req.Arguments)
	default:
		err = fmt.Errorf("unknown tool %q", req.Name)
		output = "I'm sorry, I can't do that right now."
	}

	status := "ok"
	if err != nil {
		status = "error"
		o.logger.Warn("tool failed",
			zap.String("tool", req.Name),
			zap.String("tool_call_id", req.CallID),
			zap.Error(err))
		if output == "" {
			output = "I'm sorry, something went wrong while I was looking that up."
		}
	}
	metrics.RecordToolDispatch(req.Name, status, time.Since(start).Seconds())

	if o.publisher != nil {
		o.publisher.Publish(ctx, &model.CallEvent{
			CallID: o.session.CallID,
			UserID: o.session.UserID,
			Type:   model.CallEventToolCall,
			Detail: req.Name,
			Metadata: map[string]any{
				"tool_call_id": req.CallID,
				"status":       status,
			},
		})
	}

	// Failures still produce a spoken result, so the caller is never left
	// hanging in silence after the agent promised to check something.
	if err := o.upstream.SendToolOutput(req.CallID, output); err != nil {
		o.logger.Error("failed to deliver tool output",
			zap.String("tool", req.Name), zap.Error(err))
		return
	}
	if err := o.upstream.CreateResponse(followUp); err != nil {
		o.logger.Error("failed to request response after tool",
			zap.String("tool", req.Name), zap.Error(err))
	}
}

type searchEventsArgs struct {
	ConversationContext string `json:"conversation_context"`
	Count               int    `json:"count"`
}

func (o *Orchestrator) searchEvents(ctx context.Context, arguments string) (string, string, error) {
	var args searchEventsArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "I'm sorry, I couldn't start that search. Could you ask me again?", "", fmt.Errorf("parsing search_events arguments: %w", err)
	}
	if args.Count <= 0 {
		args.Count = 3
	}
	if args.Count > 5 {
		args.Count = 5
	}

	user := o.session.User()
	if user == nil || user.Region == "" {
		return "I don't have your area on file, so I can't look up local events right now. Maybe we can chat about something else.", "", nil
	}

	candidates, err := o.finder.Find(ctx, user.Region)
	if err != nil {
		return "I'm sorry, I couldn't reach the event listings just now. Let's try again in a little while.", "", err
	}
	if len(candidates) == 0 {
		return fmt.Sprintf("I looked, but I couldn't find any events in %s over the next few weeks.", user.Region), "", nil
	}

	ranked, err := o.ranker.Rank(ctx, user, args.ConversationContext, candidates, args.Count)
	if err != nil {
		return "I'm sorry, I had trouble sorting through the events. Let's try again in a moment.", "", err
	}

	o.session.SetStoredEvents(ranked)

	var b strings.Builder
	b.WriteString("Here are some events the caller might enjoy. Mention each by its number and title, briefly, and ask which one sounds interesting:\n")
	for _, ev := range ranked {
		fmt.Fprintf(&b, "%d. %s on %s\n", ev.Ordinal, ev.Event.Title, ev.Event.StartsAt.Format("January 2"))
	}
	return b.String(), "Offer the suggestions gently and wait for the caller to show interest before giving details.", nil
}

type getEventDetailsArgs struct {
	Selection string `json:"selection"`
}

func (o *Orchestrator) getEventDetails(ctx context.Context, arguments string) (string, error) {
	var args getEventDetailsArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "I'm sorry, I didn't catch which event you meant. Could you say it again?", fmt.Errorf("parsing get_event_details arguments: %w", err)
	}

	stored := o.session.StoredEvents()
	if len(stored) == 0 {
		return "I haven't suggested any events yet. Would you like me to look some up first?", nil
	}

	if ev, ok := o.selectEvent(ctx, args.Selection, stored); ok {
		return describeEvent(ev), nil
	}

	return "I'm sorry, I'm not sure which event you meant. Could you tell me the number, like 'the first one'?", nil
}

// selectEvent resolves the caller's spoken choice against the stored
// suggestions. The ranker judges the free-form selection first; if it
// yields nothing, fall back to a literal ordinal in the caller's words.
func (o *Orchestrator) selectEvent(ctx context.Context, selection string, stored []model.RankedEvent) (model.LocalEvent, bool) {
	candidates := make([]model.LocalEvent, len(stored))
	for i, ev := range stored {
		candidates[i] = ev.Event
	}
	ranked, err := o.ranker.Rank(ctx, o.session.User(), "The caller chose: "+selection, candidates, 1)
	if err == nil && len(ranked) > 0 {
		return ranked[0].Event, true
	}

	if n := subagent.OrdinalFromSelection(selection); n != 0 {
		if n == -1 {
			return stored[len(stored)-1].Event, true
		}
		if n >= 1 && n <= len(stored) {
			return stored[n-1].Event, true
		}
	}

	return model.LocalEvent{}, false
}

func describeEvent(ev model.LocalEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Details for %s:\n", ev.Title)
	fmt.Fprintf(&b, "When: %s\n", ev.StartsAt.Format("Monday, January 2 at 3:04 PM"))
	if ev.Venue != "" {
		fmt.Fprintf(&b, "Where: %s\n", ev.Venue)
	}
	if ev.Description != "" {
		fmt.Fprintf(&b, "About: %s\n", ev.Description)
	}
	if ev.Fee != "" {
		fmt.Fprintf(&b, "Cost: %s\n", ev.Fee)
	}
	if ev.Contact != "" {
		fmt.Fprintf(&b, "Contact: %s\n", ev.Contact)
	}
	b.WriteString("Share these details conversationally, a little at a time.")
	return b.String()
}

type requestHaikuArgs struct {
	Context string `json:"context"`
}

func (o *Orchestrator) requestHaiku(ctx context.Context, arguments string) (string, error) {
	var args requestHaikuArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "I'm sorry, I lost my train of thought on that poem. Shall I try again?", fmt.Errorf("parsing request_haiku arguments: %w", err)
	}

	poem, err := o.haiku.Compose(ctx, args.Context)
	if err != nil {
		return "I'm sorry, the poem isn't coming to me right now. Let me try again later.", err
	}

	return "Read this haiku to the caller, slowly and warmly:\n" + poem, nil
}
