package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mimamori-ai/call-bridge/internal/config"
	"github.com/mimamori-ai/call-bridge/internal/model"
	"github.com/mimamori-ai/call-bridge/pkg/logger"
	"github.com/mimamori-ai/call-bridge/pkg/metrics"
)

// receiveWindow bounds one ReceiveEvent call so the caller's event loop can
// interleave other work between messages.
const receiveWindow = 100 * time.Millisecond

// wsConn is the subset of *websocket.Conn the client uses.
type wsConn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// readResult is one connection read delivered to the event loop.
type readResult struct {
	data []byte
	err  error
}

// Client is one realtime session with the speech provider. All writes are
// serialized through a mutex since the relay and tool goroutines send
// concurrently. The connection is read by a single dedicated goroutine:
// gorilla treats any read error as fatal for the connection, so the reads
// channel carries the error once and is then closed.
type Client struct {
	cfg     *config.Config
	session *model.CallSession
	logger  *logger.Logger
	tools   []ToolDeclaration

	conn    wsConn
	reads   chan readResult
	writeMu sync.Mutex
}

// NewClient creates an unconnected session client for one call.
func NewClient(cfg *config.Config, session *model.CallSession, tools []ToolDeclaration, log *logger.Logger) *Client {
	return &Client{
		cfg:     cfg,
		session: session,
		logger:  log,
		tools:   tools,
	}
}

// Connect dials the provider and sends the session configuration. The
// session is not usable for audio until the provider confirms creation.
func (c *Client) Connect(ctx context.Context, instructions string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	url := fmt.Sprintf("%s?model=%s", c.cfg.RealtimeURL, c.cfg.RealtimeModel)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dialing realtime provider: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dialing realtime provider: %w", err)
	}
	c.conn = conn
	c.reads = make(chan readResult, 32)
	go c.readLoop(conn, c.reads)

	return c.configureSession(instructions)
}

// readLoop is the connection's only reader. It runs until the first read
// error, delivers that error, and closes the channel so later ReceiveEvent
// calls keep failing cleanly instead of touching the dead connection.
func (c *Client) readLoop(conn wsConn, reads chan<- readResult) {
	defer close(reads)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			reads <- readResult{err: err}
			return
		}
		reads <- readResult{data: data}
	}
}

// configureSession sends the full session configuration: voice activity
// detection tuned for slow speakers, G.711 mu-law audio both ways, caller
// transcription and the tool declarations.
func (c *Client) configureSession(instructions string) error {
	update := sessionUpdate{
		Type: typeSessionUpdate,
		Session: sessionConfig{
			TurnDetection: &turnDetection{
				Type:              "server_vad",
				Threshold:         c.cfg.VADThreshold,
				PrefixPaddingMs:   c.cfg.VADPrefixPaddingMs,
				SilenceDurationMs: c.cfg.VADSilenceMs,
			},
			InputAudioFormat:        "g711_ulaw",
			OutputAudioFormat:       "g711_ulaw",
			InputAudioTranscription: &transcriptionConfig{Model: "whisper-1"},
			Voice:                   c.cfg.RealtimeVoice,
			Instructions:            instructions,
			Modalities:              []string{"text", "audio"},
			Temperature:             c.cfg.RealtimeTemperature,
			Tools:                   c.tools,
		},
	}

	if err := c.writeJSON(update); err != nil {
		return fmt.Errorf("configuring session: %w", err)
	}
	return nil
}

// SendAudio forwards one base64 caller audio chunk. If the provider has not
// yet confirmed the session, it waits up to the configured timeout and then
// proceeds anyway so audio is not silently discarded forever.
func (c *Client) SendAudio(ctx context.Context, audio string) error {
	if !c.session.Ready() {
		if err := c.waitReady(ctx); err != nil {
			return err
		}
	}

	return c.writeJSON(inputAudioAppend{
		Type:  typeInputAudioAppend,
		Audio: audio,
	})
}

func (c *Client) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.SessionReadyTimeout)
	ticker := time.NewTicker(c.cfg.SessionReadyPoll)
	defer ticker.Stop()

	for !c.session.Ready() {
		if time.Now().After(deadline) {
			c.logger.Warn("session not confirmed before timeout, forwarding audio anyway",
				zap.Duration("timeout", c.cfg.SessionReadyTimeout))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// ReceiveEvent returns the next provider message in normalized form,
// waiting at most the receive window. A quiet window or an unrecognized
// message type yields (nil, nil); callers loop. A closed connection yields
// an error, on this call and every later one.
func (c *Client) ReceiveEvent() (*model.ServerEvent, error) {
	if c.reads == nil {
		return nil, errors.New("realtime: not connected")
	}

	select {
	case r, ok := <-c.reads:
		if !ok {
			return nil, errors.New("realtime: connection closed")
		}
		if r.err != nil {
			return nil, r.err
		}
		event, err := c.translate(r.data)
		if err != nil {
			c.logger.Warn("dropping unparseable provider message", zap.Error(err))
			return nil, nil
		}
		if event != nil {
			metrics.UpstreamEventsTotal.WithLabelValues(string(event.Type)).Inc()
		}
		return event, nil

	case <-time.After(receiveWindow):
		return nil, nil
	}
}

// translate converts a raw provider message into a ServerEvent, or nil for
// message types the bridge does not act on.
func (c *Client) translate(data []byte) (*model.ServerEvent, error) {
	msg, err := parseServerMessage(data)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case typeSessionCreated:
		return &model.ServerEvent{
			Type:      model.ServerEventSessionCreated,
			SessionID: msg.Session.ID,
		}, nil

	case typeAudioDelta:
		c.session.AddAccumulatedAudio(base64.StdEncoding.DecodedLen(len(msg.Delta)))
		return &model.ServerEvent{
			Type:   model.ServerEventAudio,
			Audio:  msg.Delta,
			ItemID: msg.ItemID,
		}, nil

	case typeAudioDone:
		return &model.ServerEvent{Type: model.ServerEventAudioDone}, nil

	case typeTranscriptDone:
		return &model.ServerEvent{
			Type:       model.ServerEventTranscript,
			Transcript: msg.Transcript,
		}, nil

	case typeResponseDone:
		return &model.ServerEvent{Type: model.ServerEventResponseDone}, nil

	case typeSpeechStarted:
		return &model.ServerEvent{Type: model.ServerEventSpeechStarted}, nil

	case typeFunctionArgsDone:
		return &model.ServerEvent{
			Type: model.ServerEventToolCall,
			Tool: &model.ToolCallRequest{
				Name:      msg.Name,
				Arguments: msg.Arguments,
				CallID:    msg.CallID,
			},
		}, nil

	case typeError:
		return &model.ServerEvent{
			Type: model.ServerEventError,
			Err:  fmt.Sprintf("%s: %s", msg.Error.Type, msg.Error.Message),
		}, nil
	}

	return nil, nil
}

// Truncate cuts the given assistant utterance at the spoken offset so the
// provider's conversation history matches what the caller actually heard.
func (c *Client) Truncate(itemID string, audioEndMs int64) error {
	return c.writeJSON(itemTruncate{
		Type:         typeItemTruncate,
		ItemID:       itemID,
		ContentIndex: 0,
		AudioEndMs:   audioEndMs,
	})
}

// SendToolOutput delivers a tool result correlated to its originating call.
func (c *Client) SendToolOutput(callID, output string) error {
	return c.writeJSON(conversationItemCreate{
		Type: typeConversationItem,
		Item: conversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	})
}

// CreateResponse asks the provider to speak. Instructions, when non-empty,
// steer this single response without altering the session.
func (c *Client) CreateResponse(instructions string) error {
	req := responseCreate{Type: typeResponseCreate}
	if instructions != "" {
		req.Response = &responseConfig{Instructions: instructions}
	}
	return c.writeJSON(req)
}

// UpdateInstructions replaces the session instructions mid-call, leaving
// audio and VAD settings untouched.
func (c *Client) UpdateInstructions(instructions string) error {
	return c.writeJSON(sessionUpdate{
		Type:    typeSessionUpdate,
		Session: sessionConfig{Instructions: instructions},
	})
}

// SendInitialGreeting seeds the conversation with a synthetic user turn and
// requests a response, so the agent speaks first when the call connects.
func (c *Client) SendInitialGreeting() error {
	item := conversationItemCreate{
		Type: typeConversationItem,
		Item: conversationItem{
			Type: "message",
			Role: "user",
			Content: []itemContent{{
				Type: "input_text",
				Text: "Greet the user warmly and introduce yourself.",
			}},
		},
	}
	if err := c.writeJSON(item); err != nil {
		return err
	}
	return c.CreateResponse("")
}

// Close closes the provider connection. Safe to call before Connect.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errors.New("realtime: not connected")
	}
	return c.conn.WriteJSON(v)
}
