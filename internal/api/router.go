package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mcoot/partycoord/internal/api/apierr"
	"github.com/mcoot/partycoord/internal/api/handler"
	"github.com/mcoot/partycoord/internal/middleware"
	"github.com/mcoot/partycoord/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	Storage        storage.Storage
	Parties        handler.Counter
	Connections    handler.Counter
	WebSocket      http.Handler
	PublicURL      string
	AllowedOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	partyHandler := handler.NewPartyHandler(cfg.Storage, cfg.PublicURL, cfg.Logger)
	healthHandler := handler.NewHealthHandler(cfg.Parties, cfg.Connections)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, jsonPanicHandler)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Party directory
	api.HandleFunc("/parties", partyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/parties/{code}", partyHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/parties/{code}/qr.png", partyHandler.QR).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Party event protocol
	if cfg.WebSocket != nil {
		r.Handle("/ws", loggingMiddleware(cfg.WebSocket)).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodOptions,
		},
		AllowedOrigins: allowedOrigins(cfg.AllowedOrigins),
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(r)
}

// jsonPanicHandler answers a recovered panic with the standard JSON 500
func jsonPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
