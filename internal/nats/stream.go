package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/mimamori-ai/call-bridge/internal/model"
	"github.com/mimamori-ai/call-bridge/pkg/logger"
	"github.com/mimamori-ai/call-bridge/pkg/metrics"
)

const (
	// StreamName is the name of the call events stream.
	StreamName = "CALLS"

	// SubjectPrefix is the prefix for all call subjects.
	SubjectPrefix = "call"
)

// CallEventPublisher publishes call lifecycle events to JetStream.
// Publishing is best effort: a publish failure is logged and counted but
// never surfaces to the audio path.
type CallEventPublisher struct {
	client *Client
	logger *logger.Logger
}

// NewCallEventPublisher creates a publisher backed by the given client.
func NewCallEventPublisher(client *Client, log *logger.Logger) *CallEventPublisher {
	return &CallEventPublisher{client: client, logger: log}
}

// EnsureStream ensures the calls stream exists with proper configuration.
func (p *CallEventPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Call lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a call event.
func EventSubject(callID string, eventType model.CallEventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, callID, eventType)
}

// CallFilter returns the filter subject for all events of one call.
func CallFilter(callID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, callID)
}

// Publish records a call event. It fills in ID and CreatedAt when unset and
// swallows publish errors after logging them.
func (p *CallEventPublisher) Publish(ctx context.Context, event *model.CallEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal call event",
			zap.String("call_id", event.CallID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
		metrics.CallEventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return
	}

	subject := EventSubject(event.CallID, event.Type)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		p.logger.Warn("failed to publish call event",
			zap.String("subject", subject),
			zap.Error(err))
		metrics.CallEventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return
	}

	metrics.CallEventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
}
