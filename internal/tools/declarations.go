// Package tools implements the tool orchestrator: it executes tool calls
// requested by the realtime provider off the audio path and feeds results
// back into the session.
package tools

import "github.com/mimamori-ai/call-bridge/internal/realtime"

// Tool names as declared to the provider.
const (
	ToolSearchEvents    = "search_events"
	ToolGetEventDetails = "get_event_details"
	ToolRequestHaiku    = "request_haiku"
)

// Declarations returns the tool set offered to the provider at session
// configuration time.
func Declarations() []realtime.ToolDeclaration {
	return []realtime.ToolDeclaration{
		{
			Type:        "function",
			Name:        ToolSearchEvents,
			Description: "Search for local community events the caller might enjoy, based on the conversation so far.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"conversation_context": map[string]any{
						"type":        "string",
						"description": "Summary of the caller's interests and mood from the conversation so far.",
					},
					"count": map[string]any{
						"type":        "integer",
						"description": "How many events to suggest. Defaults to 3.",
					},
				},
				"required": []string{"conversation_context"},
			},
		},
		{
			Type:        "function",
			Name:        ToolGetEventDetails,
			Description: "Get full details for one of the previously suggested events.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"selection": map[string]any{
						"type":        "string",
						"description": "Which suggested event the caller chose, e.g. 'the second one' or the event title.",
					},
				},
				"required": []string{"selection"},
			},
		},
		{
			Type:        "function",
			Name:        ToolRequestHaiku,
			Description: "Compose a short haiku for the caller about a topic from the conversation.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"context": map[string]any{
						"type":        "string",
						"description": "Topic or mood for the haiku.",
					},
				},
				"required": []string{"context"},
			},
		},
	}
}
