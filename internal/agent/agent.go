// Package agent implements the per-call state machine that sits between the
// telephony relay and the realtime speech provider.
package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mimamori-ai/call-bridge/internal/model"
	"github.com/mimamori-ai/call-bridge/internal/repository"
	"github.com/mimamori-ai/call-bridge/internal/tools"
	"github.com/mimamori-ai/call-bridge/pkg/logger"
	"github.com/mimamori-ai/call-bridge/pkg/metrics"
)

// Upstream is the slice of the realtime client the agent drives.
type Upstream interface {
	Connect(ctx context.Context, instructions string) error
	SendAudio(ctx context.Context, audio string) error
	ReceiveEvent() (*model.ServerEvent, error)
	Truncate(itemID string, audioEndMs int64) error
	UpdateInstructions(instructions string) error
	SendInitialGreeting() error
	Close() error
}

// CallAgent coordinates one phone call: it forwards caller audio upstream,
// consumes provider events, hands tool calls to the orchestrator and cuts
// the assistant short when the caller barges in.
type CallAgent struct {
	session      *model.CallSession
	upstream     Upstream
	orchestrator *tools.Orchestrator
	users        repository.UserRepository
	publisher    tools.EventPublisher
	logger       *logger.Logger

	mu    sync.Mutex
	state model.CallState

	closeOnce sync.Once
	closeErr  error
}

// NewCallAgent wires an agent for one call.
func NewCallAgent(session *model.CallSession, upstream Upstream, orchestrator *tools.Orchestrator, users repository.UserRepository, publisher tools.EventPublisher, log *logger.Logger) *CallAgent {
	return &CallAgent{
		session:      session,
		upstream:     upstream,
		orchestrator: orchestrator,
		users:        users,
		publisher:    publisher,
		logger:       log,
		state:        model.StateDisconnected,
	}
}

// State returns the agent's current lifecycle state.
func (a *CallAgent) State() model.CallState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Session returns the call session the agent operates on.
func (a *CallAgent) Session() *model.CallSession {
	return a.session
}

func (a *CallAgent) setState(s model.CallState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Connect opens the upstream session with the generic persona. The
// personalized instructions follow once the telephony leg identifies the
// callee.
func (a *CallAgent) Connect(ctx context.Context) error {
	a.setState(model.StateConnecting)
	if err := a.upstream.Connect(ctx, BuildInstructions(nil)); err != nil {
		a.setState(model.StateDisconnected)
		return err
	}
	return nil
}

// StartConversation is called when the telephony stream starts. It resolves
// the callee profile, personalizes the session and has the agent speak
// first. A failed profile lookup is logged and the call proceeds with the
// generic persona.
func (a *CallAgent) StartConversation(ctx context.Context, callID, userID string) error {
	a.session.CallID = callID
	a.session.UserID = userID

	log := a.logger.WithCall(callID, userID)

	if userID != "" {
		user, err := a.users.GetUser(ctx, userID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			log.Warn("no profile for callee, using generic persona")
		case err != nil:
			log.Warn("profile lookup failed, using generic persona", zap.Error(err))
		default:
			a.session.SetUser(user)
			if err := a.upstream.UpdateInstructions(BuildInstructions(user)); err != nil {
				return err
			}
		}
	}

	if a.publisher != nil {
		a.publisher.Publish(ctx, &model.CallEvent{
			CallID: callID,
			UserID: userID,
			Type:   model.CallEventStarted,
		})
	}

	log.Info("conversation started", zap.String("state", string(a.State())))
	return a.upstream.SendInitialGreeting()
}

// ProcessCallerAudio forwards one caller audio chunk upstream.
func (a *CallAgent) ProcessCallerAudio(ctx context.Context, audio string) error {
	return a.upstream.SendAudio(ctx, audio)
}

// NextAgentEvent reads the next upstream event, applies the agent's own
// state transitions, and returns the event for the relay to act on. A nil
// event with nil error means nothing arrived in this read window.
func (a *CallAgent) NextAgentEvent(ctx context.Context) (*model.ServerEvent, error) {
	event, err := a.upstream.ReceiveEvent()
	if err != nil || event == nil {
		return nil, err
	}

	switch event.Type {
	case model.ServerEventSessionCreated:
		a.session.MarkReady()
		a.setState(model.StateSessionReady)
		a.logger.Info("upstream session ready",
			zap.String("call_id", a.session.CallID),
			zap.String("session_id", event.SessionID))

	case model.ServerEventAudio:
		if event.ItemID != "" {
			a.session.SetLastAssistantItem(event.ItemID)
		}
		a.setState(model.StateActive)

	case model.ServerEventAudioDone:
		if n := a.session.ResetAccumulatedAudio(); n > 0 {
			a.logger.Debug("utterance finished",
				zap.String("call_id", a.session.CallID),
				zap.Int("audio_bytes", n))
		}

	case model.ServerEventResponseDone:
		a.session.ClearLastAssistantItem()

	case model.ServerEventTranscript:
		if a.publisher != nil {
			a.publisher.Publish(ctx, &model.CallEvent{
				CallID: a.session.CallID,
				UserID: a.session.UserID,
				Type:   model.CallEventTranscript,
				Detail: event.Transcript,
			})
		}

	case model.ServerEventToolCall:
		a.orchestrator.Dispatch(event.Tool)
		return &model.ServerEvent{
			Type: model.ServerEventAgentThinking,
			Tool: event.Tool,
		}, nil

	case model.ServerEventError:
		a.logger.Error("upstream error",
			zap.String("call_id", a.session.CallID),
			zap.String("error", event.Err))
	}

	return event, nil
}

// HandleInterruption cuts the current assistant utterance at the spoken
// offset. It is a no-op when no utterance is in flight, so duplicate
// speech-started signals are harmless.
func (a *CallAgent) HandleInterruption(ctx context.Context, elapsedMs int64) error {
	itemID := a.session.ClearLastAssistantItem()
	if itemID == "" {
		return nil
	}

	a.setState(model.StateInterrupted)
	metrics.InterruptionsTotal.Inc()

	if a.publisher != nil {
		a.publisher.Publish(ctx, &model.CallEvent{
			CallID: a.session.CallID,
			UserID: a.session.UserID,
			Type:   model.CallEventInterruption,
			Metadata: map[string]any{
				"item_id":      itemID,
				"audio_end_ms": elapsedMs,
			},
		})
	}

	if err := a.upstream.Truncate(itemID, elapsedMs); err != nil {
		return err
	}

	a.setState(model.StateActive)
	return nil
}

// Close shuts the call down: tools are drained, the upstream connection is
// closed and the end-of-call event is published. Safe to call more than
// once.
func (a *CallAgent) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.setState(model.StateClosed)
		a.orchestrator.Shutdown()
		a.closeErr = a.upstream.Close()

		if a.publisher != nil {
			a.publisher.Publish(ctx, &model.CallEvent{
				CallID: a.session.CallID,
				UserID: a.session.UserID,
				Type:   model.CallEventEnded,
			})
		}

		a.logger.Info("call closed",
			zap.String("call_id", a.session.CallID),
			zap.Duration("duration", time.Since(a.session.StartedAt)))
	})
	return a.closeErr
}
