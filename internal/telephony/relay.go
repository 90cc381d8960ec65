package telephony

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mimamori-ai/call-bridge/internal/model"
	"github.com/mimamori-ai/call-bridge/pkg/logger"
	"github.com/mimamori-ai/call-bridge/pkg/metrics"
)

// Agent is what the relay needs from the call agent.
type Agent interface {
	StartConversation(ctx context.Context, callID, userID string) error
	ProcessCallerAudio(ctx context.Context, audio string) error
	NextAgentEvent(ctx context.Context) (*model.ServerEvent, error)
	HandleInterruption(ctx context.Context, elapsedMs int64) error
	Close(ctx context.Context) error
}

// conn is the subset of *websocket.Conn the relay uses.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Relay shuttles audio between the telephony WebSocket and the call agent.
// Two loops run per call: the read loop consumes provider frames, the event
// loop consumes agent events. Either loop exiting ends the call.
type Relay struct {
	conn   conn
	agent  Agent
	logger *logger.Logger

	// latestMediaTS is the newest caller media timestamp, in ms since
	// stream start. It is the clock truncation offsets are computed on.
	latestMediaTS atomic.Int64

	mu               sync.Mutex
	streamSid        string
	markQueue        []string
	responseStartTS  int64
	hasResponseStart bool
}

// NewRelay creates a relay for one accepted media-stream connection.
func NewRelay(c conn, agent Agent, log *logger.Logger) *Relay {
	return &Relay{conn: c, agent: agent, logger: log}
}

// Run drives both loops until the stream stops, a connection drops, or ctx
// is cancelled. The agent is always closed before Run returns.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	metrics.CallStarted()

	errCh := make(chan error, 2)
	go func() { errCh <- r.readLoop(ctx) }()
	go func() { errCh <- r.eventLoop(ctx) }()

	err := <-errCh
	cancel()
	r.conn.Close()
	// Unblock the other loop's pending read before waiting on it.
	<-errCh

	if cerr := r.agent.Close(context.WithoutCancel(ctx)); cerr != nil {
		r.logger.Warn("closing agent", zap.Error(cerr))
	}
	metrics.CallEnded(time.Since(start).Seconds())

	return err
}

// readLoop consumes frames from the telephony provider. Malformed frames
// and unknown events are dropped.
func (r *Relay) readLoop(ctx context.Context) error {
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Info("telephony stream closed", zap.Error(err))
			return nil
		}

		frame, err := parseInboundFrame(data)
		if err != nil {
			r.logger.Debug("dropping malformed frame", zap.Error(err))
			continue
		}

		switch frame.Event {
		case eventStart:
			r.mu.Lock()
			r.streamSid = frame.Start.StreamSid
			r.mu.Unlock()

			userID := frame.Start.CustomParameters[userIDParameter]
			if err := r.agent.StartConversation(ctx, frame.Start.StreamSid, userID); err != nil {
				r.logger.Error("failed to start conversation", zap.Error(err))
				return err
			}

		case eventMedia:
			if ts, err := frame.timestampMs(); err == nil {
				r.latestMediaTS.Store(ts)
			}
			metrics.CallerAudioFrames.Inc()
			if err := r.agent.ProcessCallerAudio(ctx, frame.Media.Payload); err != nil {
				r.logger.Error("failed to forward caller audio", zap.Error(err))
				return err
			}

		case eventMark:
			r.mu.Lock()
			if len(r.markQueue) > 0 {
				r.markQueue = r.markQueue[1:]
			}
			r.mu.Unlock()

		case eventStop:
			r.logger.Info("telephony stream stopped", zap.String("stream_sid", r.StreamSid()))
			return nil
		}
	}
}

// eventLoop consumes agent events and writes audio, marks and clears back
// to the telephony provider.
func (r *Relay) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		event, err := r.agent.NextAgentEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Info("upstream session ended", zap.Error(err))
			return nil
		}
		if event == nil {
			continue
		}

		switch event.Type {
		case model.ServerEventAudio:
			if err := r.forwardAgentAudio(event.Audio); err != nil {
				return err
			}

		case model.ServerEventSpeechStarted:
			if err := r.handleSpeechStarted(ctx); err != nil {
				return err
			}
		}
	}
}

// forwardAgentAudio writes one agent audio chunk followed by a mark, and
// pins the response start to the caller's clock on the first chunk of each
// utterance.
func (r *Relay) forwardAgentAudio(payload string) error {
	sid := r.StreamSid()
	if sid == "" {
		return nil
	}

	if err := r.conn.WriteJSON(newMediaFrame(sid, payload)); err != nil {
		return err
	}
	metrics.AgentAudioFrames.Inc()

	r.mu.Lock()
	if !r.hasResponseStart {
		r.responseStartTS = r.latestMediaTS.Load()
		r.hasResponseStart = true
	}
	r.markQueue = append(r.markQueue, markLabel)
	r.mu.Unlock()

	return r.conn.WriteJSON(newMarkFrame(sid))
}

// handleSpeechStarted reacts to the caller talking over the agent: the
// utterance is truncated at what the caller actually heard, queued audio is
// cleared on the provider, and the mark queue is flushed. With no audio in
// flight it does nothing.
func (r *Relay) handleSpeechStarted(ctx context.Context) error {
	r.mu.Lock()
	if len(r.markQueue) == 0 || !r.hasResponseStart {
		r.mu.Unlock()
		return nil
	}
	elapsed := r.latestMediaTS.Load() - r.responseStartTS
	sid := r.streamSid
	r.markQueue = nil
	r.hasResponseStart = false
	r.mu.Unlock()

	if err := r.agent.HandleInterruption(ctx, elapsed); err != nil {
		r.logger.Error("failed to truncate interrupted response", zap.Error(err))
	}

	return r.conn.WriteJSON(newClearFrame(sid))
}

// StreamSid returns the stream identifier, or "" before the start frame.
func (r *Relay) StreamSid() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streamSid
}
