package model

// ServerEventType identifies a normalized event from the realtime speech
// provider. Raw wire message types outside this set are dropped by the
// session client before they reach the agent.
type ServerEventType string

const (
	ServerEventSessionCreated ServerEventType = "session_created"
	ServerEventAudio          ServerEventType = "audio"
	ServerEventAudioDone      ServerEventType = "audio_done"
	ServerEventTranscript     ServerEventType = "transcript"
	ServerEventResponseDone   ServerEventType = "response_done"
	ServerEventSpeechStarted  ServerEventType = "speech_started"
	ServerEventToolCall       ServerEventType = "tool_call"
	ServerEventAgentThinking  ServerEventType = "agent_thinking"
	ServerEventError          ServerEventType = "error"
)

// ServerEvent is the provider-neutral form of an upstream message. Only the
// fields relevant to the event type are populated.
type ServerEvent struct {
	Type ServerEventType

	// Audio is a base64 payload chunk, set for ServerEventAudio.
	Audio string
	// ItemID identifies the assistant utterance an audio chunk belongs to.
	ItemID string
	// Transcript is the finished utterance text, set for ServerEventTranscript.
	Transcript string
	// SessionID is set for ServerEventSessionCreated.
	SessionID string
	// Tool holds the call request for ServerEventToolCall and the
	// in-flight request echoed on ServerEventAgentThinking.
	Tool *ToolCallRequest
	// Err carries the provider error message for ServerEventError.
	Err string
}

// ToolCallRequest is an upstream request to invoke a named tool. Arguments
// is the raw JSON argument object as sent by the provider; CallID must be
// echoed back with the tool output so the provider can correlate it.
type ToolCallRequest struct {
	Name      string
	Arguments string
	CallID    string
}
