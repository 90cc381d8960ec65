// Package handler provides HTTP handlers for the call bridge.
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mimamori-ai/call-bridge/internal/agent"
	"github.com/mimamori-ai/call-bridge/internal/config"
	"github.com/mimamori-ai/call-bridge/internal/model"
	"github.com/mimamori-ai/call-bridge/internal/realtime"
	"github.com/mimamori-ai/call-bridge/internal/repository"
	"github.com/mimamori-ai/call-bridge/internal/subagent"
	"github.com/mimamori-ai/call-bridge/internal/telephony"
	"github.com/mimamori-ai/call-bridge/internal/tools"
	"github.com/mimamori-ai/call-bridge/pkg/logger"
)

// MediaStreamHandler accepts telephony media-stream connections and wires
// up the full per-call pipeline.
type MediaStreamHandler struct {
	cfg       *config.Config
	users     repository.UserRepository
	finder    *subagent.EventFinder
	ranker    *subagent.EventRanker
	haiku     *subagent.HaikuAgent
	publisher tools.EventPublisher
	registry  *agent.Registry
	logger    *logger.Logger
	upgrader  websocket.Upgrader
}

// NewMediaStreamHandler creates the media-stream handler.
func NewMediaStreamHandler(cfg *config.Config, users repository.UserRepository, finder *subagent.EventFinder, ranker *subagent.EventRanker, haiku *subagent.HaikuAgent, publisher tools.EventPublisher, registry *agent.Registry, log *logger.Logger) *MediaStreamHandler {
	return &MediaStreamHandler{
		cfg:       cfg,
		users:     users,
		finder:    finder,
		ranker:    ranker,
		haiku:     haiku,
		publisher: publisher,
		registry:  registry,
		logger:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The telephony provider does not send a browser Origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleMediaStream handles GET /media-stream. It upgrades to WebSocket,
// dials the realtime provider and relays until either side hangs up.
func (h *MediaStreamHandler) HandleMediaStream(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("media stream upgrade failed", zap.Error(err))
		return
	}

	ctx := r.Context()
	session := model.NewCallSession()

	upstream := realtime.NewClient(h.cfg, session, tools.Declarations(), h.logger)
	orch := tools.NewOrchestrator(ctx, upstream, session, h.finder, h.ranker, h.haiku, h.publisher, h.cfg.ToolTimeout, h.logger)
	callAgent := agent.NewCallAgent(session, upstream, orch, h.users, h.publisher, h.logger)

	if err := callAgent.Connect(ctx); err != nil {
		h.logger.Error("failed to connect to realtime provider", zap.Error(err))
		orch.Shutdown()
		ws.Close()
		return
	}

	h.registry.Add(callAgent)
	defer h.registry.Remove(callAgent)

	relay := telephony.NewRelay(ws, callAgent, h.logger)
	if err := relay.Run(ctx); err != nil {
		h.logger.Warn("relay ended with error",
			zap.String("call_id", session.CallID),
			zap.Error(err))
	}
}
