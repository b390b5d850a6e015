package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to party WebSocket connections
type Handler struct {
	ctx      context.Context
	gateway  *Gateway
	upgrader websocket.Upgrader
	cfg      ConnConfig
	logger   *slog.Logger
}

// NewHandler creates a Handler. Connections are closed when ctx is cancelled.
func NewHandler(ctx context.Context, gw *Gateway, cfg ConnConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		ctx:     ctx,
		gateway: gw,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     OriginChecker(allowedOrigins),
		},
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		h.logger.Info("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	conn := NewConnection(ws, h.cfg, h.logger)
	h.logger.Debug("connection established",
		slog.String("connection_id", conn.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	conn.Serve(h.ctx, h.gateway)
}

// OriginChecker accepts requests whose Origin header is in allowed.
// A "*" entry or a missing Origin header always passes.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	wildcard := false
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
		}
		origins[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if wildcard || origin == "" {
			return true
		}
		return origins[strings.ToLower(origin)]
	}
}
