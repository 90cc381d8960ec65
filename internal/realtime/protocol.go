// Package realtime implements the client for the realtime speech provider:
// a WebSocket session that accepts caller audio and control messages and
// yields synthesized speech, transcripts and tool-call requests.
package realtime

import "encoding/json"

// Client-to-server message types.
const (
	typeSessionUpdate    = "session.update"
	typeInputAudioAppend = "input_audio_buffer.append"
	typeConversationItem = "conversation.item.create"
	typeItemTruncate     = "conversation.item.truncate"
	typeResponseCreate   = "response.create"
)

// Server-to-client message types the client understands. Anything else on
// the wire is dropped.
const (
	typeSessionCreated   = "session.created"
	typeAudioDelta       = "response.audio.delta"
	typeAudioDone        = "response.audio.done"
	typeTranscriptDone   = "response.audio_transcript.done"
	typeResponseDone     = "response.done"
	typeSpeechStarted    = "input_audio_buffer.speech_started"
	typeFunctionArgsDone = "response.function_call_arguments.done"
	typeError            = "error"
)

// ToolDeclaration describes one tool offered to the provider in the session
// configuration.
type ToolDeclaration struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type sessionConfig struct {
	TurnDetection           *turnDetection       `json:"turn_detection,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	InputAudioTranscription *transcriptionConfig `json:"input_audio_transcription,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	Modalities              []string             `json:"modalities,omitempty"`
	Temperature             float64              `json:"temperature,omitempty"`
	Tools                   []ToolDeclaration    `json:"tools,omitempty"`
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type inputAudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type itemContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
	Content []itemContent `json:"content,omitempty"`
}

type conversationItemCreate struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type itemTruncate struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int64  `json:"audio_end_ms"`
}

type responseCreate struct {
	Type     string          `json:"type"`
	Response *responseConfig `json:"response,omitempty"`
}

type responseConfig struct {
	Instructions string `json:"instructions,omitempty"`
}

// serverMessage is the envelope for every message the provider sends. Only
// the fields used by some message type are declared.
type serverMessage struct {
	Type       string `json:"type"`
	Delta      string `json:"delta,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Name       string `json:"name,omitempty"`
	Arguments  string `json:"arguments,omitempty"`
	CallID     string `json:"call_id,omitempty"`
	Session    struct {
		ID string `json:"id"`
	} `json:"session,omitempty"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func parseServerMessage(data []byte) (*serverMessage, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
