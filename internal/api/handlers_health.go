// handlers_health.go - Service health and staging summary
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docstager/backend/internal/state"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	store   *state.Store
	journal JournalReader
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store *state.Store, journal JournalReader) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		store:   store,
		journal: journal,
	}
}

// HandleHealth reports liveness plus a staging summary: the current staged
// count and whether the ingestion journal is wired, so operators get the
// essentials without touching the data endpoints.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	journalStatus := "ok"
	if h.journal == nil {
		journalStatus = "disabled"
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"version":     h.version,
		"stagedFiles": h.store.Get().Files.Len(),
		"journal":     journalStatus,
	})
}
