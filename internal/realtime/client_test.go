package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mimamori-ai/call-bridge/internal/config"
	"github.com/mimamori-ai/call-bridge/internal/model"
	"github.com/mimamori-ai/call-bridge/pkg/logger"
)

type fakeConn struct {
	written  []interface{}
	incoming chan readResult
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan readResult, 8)}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.written = append(f.written, v)
	return nil
}

// ReadMessage blocks until a message or error is queued, like a real
// connection between frames.
func (f *fakeConn) ReadMessage() (int, []byte, error) {
	r, ok := <-f.incoming
	if !ok {
		return 0, nil, errors.New("use of closed network connection")
	}
	if r.err != nil {
		return 0, nil, r.err
	}
	return 1, r.data, nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) push(raw string) { f.incoming <- readResult{data: []byte(raw)} }
func (f *fakeConn) fail(err error)  { f.incoming <- readResult{err: err} }

func testClient(t *testing.T) (*Client, *fakeConn, *model.CallSession) {
	t.Helper()
	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	cfg := config.Load()
	cfg.SessionReadyPoll = time.Millisecond
	cfg.SessionReadyTimeout = 20 * time.Millisecond

	session := model.NewCallSession()
	c := NewClient(cfg, session, nil, log)
	conn := newFakeConn()
	c.conn = conn
	c.reads = make(chan readResult, 8)
	go c.readLoop(conn, c.reads)
	t.Cleanup(func() { close(conn.incoming) })
	return c, conn, session
}

func TestTranslateKnownEvents(t *testing.T) {
	c, _, _ := testClient(t)

	cases := []struct {
		name string
		raw  string
		want model.ServerEventType
	}{
		{"session created", `{"type":"session.created","session":{"id":"sess-1"}}`, model.ServerEventSessionCreated},
		{"audio delta", `{"type":"response.audio.delta","delta":"b64","item_id":"item-1"}`, model.ServerEventAudio},
		{"audio done", `{"type":"response.audio.done"}`, model.ServerEventAudioDone},
		{"transcript", `{"type":"response.audio_transcript.done","transcript":"hello"}`, model.ServerEventTranscript},
		{"response done", `{"type":"response.done"}`, model.ServerEventResponseDone},
		{"speech started", `{"type":"input_audio_buffer.speech_started"}`, model.ServerEventSpeechStarted},
		{"tool call", `{"type":"response.function_call_arguments.done","name":"search_events","arguments":"{}","call_id":"call-1"}`, model.ServerEventToolCall},
		{"error", `{"type":"error","error":{"type":"server_error","message":"boom"}}`, model.ServerEventError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := c.translate([]byte(tc.raw))
			if err != nil {
				t.Fatalf("translate: %v", err)
			}
			if event == nil {
				t.Fatal("expected an event")
			}
			if event.Type != tc.want {
				t.Errorf("got type %q, want %q", event.Type, tc.want)
			}
		})
	}
}

func TestTranslateFieldMapping(t *testing.T) {
	c, _, session := testClient(t)

	event, err := c.translate([]byte(`{"type":"response.audio.delta","delta":"AAAAAAAA","item_id":"item-7"}`))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if event.Audio != "AAAAAAAA" || event.ItemID != "item-7" {
		t.Errorf("audio fields not mapped: %+v", event)
	}
	// 8 base64 characters carry 6 bytes of audio.
	if n := session.ResetAccumulatedAudio(); n != 6 {
		t.Errorf("accumulated audio = %d, want 6", n)
	}

	event, err = c.translate([]byte(`{"type":"response.function_call_arguments.done","name":"request_haiku","arguments":"{\"context\":\"autumn\"}","call_id":"c-9"}`))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if event.Tool == nil {
		t.Fatal("expected tool request")
	}
	if event.Tool.Name != "request_haiku" || event.Tool.CallID != "c-9" {
		t.Errorf("tool fields not mapped: %+v", event.Tool)
	}
}

func TestTranslateDropsUnknownTypes(t *testing.T) {
	c, _, _ := testClient(t)

	event, err := c.translate([]byte(`{"type":"response.text.delta","delta":"hi"}`))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if event != nil {
		t.Errorf("expected unknown type to be dropped, got %+v", event)
	}
}

func TestReceiveEventQuietWindowYieldsNothing(t *testing.T) {
	c, _, _ := testClient(t)

	event, err := c.ReceiveEvent()
	if err != nil {
		t.Fatalf("quiet window should not be an error: %v", err)
	}
	if event != nil {
		t.Errorf("expected no event, got %+v", event)
	}
}

func TestReceiveEventSurvivesQuietWindow(t *testing.T) {
	c, conn, _ := testClient(t)

	// A silent stretch with nothing to read must not poison the
	// connection for the messages that follow it.
	if event, err := c.ReceiveEvent(); err != nil || event != nil {
		t.Fatalf("quiet window: event=%+v err=%v", event, err)
	}

	conn.push(`{"type":"session.created","session":{"id":"sess-1"}}`)
	event, err := c.ReceiveEvent()
	if err != nil {
		t.Fatalf("receive after quiet window: %v", err)
	}
	if event == nil || event.Type != model.ServerEventSessionCreated {
		t.Fatalf("event after quiet window = %+v, want session created", event)
	}
}

func TestReceiveEventClosedConnection(t *testing.T) {
	c, conn, _ := testClient(t)
	conn.fail(errors.New("connection reset"))

	if _, err := c.ReceiveEvent(); err == nil {
		t.Fatal("expected error from closed connection")
	}
	// The error is sticky: every later receive reports it instead of
	// reading the dead connection again.
	if _, err := c.ReceiveEvent(); err == nil {
		t.Fatal("expected error to persist after connection failure")
	}
}

func TestSendAudioWaitsForSessionReady(t *testing.T) {
	c, conn, session := testClient(t)

	go func() {
		time.Sleep(5 * time.Millisecond)
		session.MarkReady()
	}()

	if err := c.SendAudio(context.Background(), "chunk"); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	if len(conn.written) != 1 {
		t.Fatalf("expected 1 write, got %d", len(conn.written))
	}
	msg := conn.written[0].(inputAudioAppend)
	if msg.Type != "input_audio_buffer.append" || msg.Audio != "chunk" {
		t.Errorf("unexpected append message: %+v", msg)
	}
}

func TestSendAudioProceedsAfterReadyTimeout(t *testing.T) {
	c, conn, _ := testClient(t)

	// Session never becomes ready; the chunk still goes out after the
	// bounded wait.
	if err := c.SendAudio(context.Background(), "chunk"); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	if len(conn.written) != 1 {
		t.Fatalf("expected 1 write after timeout, got %d", len(conn.written))
	}
}

func TestTruncatePayload(t *testing.T) {
	c, conn, _ := testClient(t)

	if err := c.Truncate("item-42", 1200); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	msg := conn.written[0].(itemTruncate)
	if msg.Type != "conversation.item.truncate" {
		t.Errorf("got type %q", msg.Type)
	}
	if msg.ItemID != "item-42" || msg.AudioEndMs != 1200 || msg.ContentIndex != 0 {
		t.Errorf("unexpected truncate payload: %+v", msg)
	}
}

func TestSendToolOutputCorrelation(t *testing.T) {
	c, conn, _ := testClient(t)

	if err := c.SendToolOutput("call-3", "result text"); err != nil {
		t.Fatalf("SendToolOutput: %v", err)
	}

	msg := conn.written[0].(conversationItemCreate)
	if msg.Item.Type != "function_call_output" {
		t.Errorf("got item type %q", msg.Item.Type)
	}
	if msg.Item.CallID != "call-3" || msg.Item.Output != "result text" {
		t.Errorf("unexpected tool output item: %+v", msg.Item)
	}
}

func TestSendInitialGreeting(t *testing.T) {
	c, conn, _ := testClient(t)

	if err := c.SendInitialGreeting(); err != nil {
		t.Fatalf("SendInitialGreeting: %v", err)
	}
	if len(conn.written) != 2 {
		t.Fatalf("expected item + response.create, got %d writes", len(conn.written))
	}

	item := conn.written[0].(conversationItemCreate)
	if item.Item.Role != "user" || len(item.Item.Content) == 0 {
		t.Errorf("unexpected greeting item: %+v", item.Item)
	}
	resp := conn.written[1].(responseCreate)
	if resp.Type != "response.create" || resp.Response != nil {
		t.Errorf("unexpected response request: %+v", resp)
	}
}

func TestCreateResponseWithInstructions(t *testing.T) {
	c, conn, _ := testClient(t)

	if err := c.CreateResponse("speak gently"); err != nil {
		t.Fatalf("CreateResponse: %v", err)
	}
	msg := conn.written[0].(responseCreate)
	if msg.Response == nil || msg.Response.Instructions != "speak gently" {
		t.Errorf("instructions not carried: %+v", msg)
	}
}

func TestSessionConfigurationWire(t *testing.T) {
	c, conn, _ := testClient(t)
	c.tools = []ToolDeclaration{{Type: "function", Name: "search_events"}}

	if err := c.configureSession("persona"); err != nil {
		t.Fatalf("configureSession: %v", err)
	}

	data, err := json.Marshal(conn.written[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	session := decoded["session"].(map[string]any)
	if session["input_audio_format"] != "g711_ulaw" || session["output_audio_format"] != "g711_ulaw" {
		t.Errorf("audio formats wrong: %v", session)
	}
	td := session["turn_detection"].(map[string]any)
	if td["type"] != "server_vad" {
		t.Errorf("turn detection wrong: %v", td)
	}
	if td["silence_duration_ms"].(float64) != 3000 {
		t.Errorf("silence duration wrong: %v", td["silence_duration_ms"])
	}
}
