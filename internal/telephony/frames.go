// Package telephony implements the media-stream side of the bridge: the
// WebSocket protocol spoken by the telephony provider and the relay loops
// that shuttle audio between the caller and the agent.
package telephony

import (
	"encoding/json"
	"strconv"
)

// Inbound frame event names.
const (
	eventStart = "start"
	eventMedia = "media"
	eventMark  = "mark"
	eventStop  = "stop"
)

// markLabel is the name attached to outbound mark frames; the provider
// echoes it back once the preceding audio has been played out.
const markLabel = "responsePart"

// userIDParameter is the custom stream parameter carrying the callee ID.
const userIDParameter = "userId"

// inboundFrame is the envelope for every frame the telephony provider
// sends. Only the section matching Event is populated.
type inboundFrame struct {
	Event string `json:"event"`
	Start struct {
		StreamSid        string            `json:"streamSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start"`
	Media struct {
		// Timestamp is milliseconds since stream start, sent as a string.
		Timestamp string `json:"timestamp"`
		Payload   string `json:"payload"`
	} `json:"media"`
	Mark struct {
		Name string `json:"name"`
	} `json:"mark"`
	StreamSid string `json:"streamSid"`
}

func parseInboundFrame(data []byte) (*inboundFrame, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// timestampMs parses the media frame's millisecond timestamp.
func (f *inboundFrame) timestampMs() (int64, error) {
	return strconv.ParseInt(f.Media.Timestamp, 10, 64)
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

type mediaFrame struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

func newMediaFrame(streamSid, payload string) mediaFrame {
	return mediaFrame{
		Event:     eventMedia,
		StreamSid: streamSid,
		Media:     mediaPayload{Payload: payload},
	}
}

type markName struct {
	Name string `json:"name"`
}

type markFrame struct {
	Event     string   `json:"event"`
	StreamSid string   `json:"streamSid"`
	Mark      markName `json:"mark"`
}

func newMarkFrame(streamSid string) markFrame {
	return markFrame{
		Event:     eventMark,
		StreamSid: streamSid,
		Mark:      markName{Name: markLabel},
	}
}

type clearFrame struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}

func newClearFrame(streamSid string) clearFrame {
	return clearFrame{Event: "clear", StreamSid: streamSid}
}
