// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/docstager/backend/internal/logging"
	"github.com/docstager/backend/internal/state"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Pipeline Ingestor
	Store    *state.Store
	Journal  JournalReader
	Log      *logging.Logger
	Version  string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Files   FilesHandler
	State   StateHandler
	Journal JournalHandler
	WS      *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Store, deps.Journal),
		Files:   NewFilesHandler(deps.Pipeline, deps.Store),
		State:   NewStateHandler(deps.Store),
		Journal: NewJournalHandler(deps.Journal),
		WS:      NewWebSocketHandler(deps.Pipeline, deps.Store, deps.Log),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// WebSocket: drag ingestion in, state broadcasts out
	apiGroup.GET("/ws/staging", handlers.WS.HandleWebSocket)

	// Staged files
	apiGroup.POST("/files/upload/binary", handlers.Files.HandleUploadBinary)
	apiGroup.POST("/files/upload", handlers.Files.HandleUploadFile)
	apiGroup.GET("/files", handlers.Files.HandleListFiles)
	apiGroup.DELETE("/files/:name", handlers.Files.HandleRemoveFile)
	apiGroup.DELETE("/files", handlers.Files.HandleClearFiles)

	// Shared state
	apiGroup.GET("/state", handlers.State.HandleGetState)
	apiGroup.GET("/state/msgpack", handlers.State.HandleGetStateMsgpack)
	apiGroup.PUT("/state/panel", handlers.State.HandleSetPanel)
	apiGroup.PUT("/state/model", handlers.State.HandleSetModel)

	// Ingestion audit trail
	apiGroup.GET("/journal", handlers.Journal.HandleRecentEvents)
}
