// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/docstager/backend/internal/ingest"
	"github.com/docstager/backend/internal/journal"
)

// FilesHandler handles staged-file operations
type FilesHandler interface {
	HandleUploadBinary(c echo.Context) error
	HandleUploadFile(c echo.Context) error
	HandleListFiles(c echo.Context) error
	HandleRemoveFile(c echo.Context) error
	HandleClearFiles(c echo.Context) error
}

// StateHandler handles shared-state snapshots and UI flags
type StateHandler interface {
	HandleGetState(c echo.Context) error
	HandleGetStateMsgpack(c echo.Context) error
	HandleSetPanel(c echo.Context) error
	HandleSetModel(c echo.Context) error
}

// JournalHandler handles the ingestion audit trail
type JournalHandler interface {
	HandleRecentEvents(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// Ingestor is the pipeline surface the handlers need.
// This allows mocking in tests.
type Ingestor interface {
	AddFiles(src ingest.Source, batch []ingest.Candidate) (*ingest.Report, error)
	RemoveFile(name string) (bool, error)
	ClearFiles() error
}

// JournalReader is the query surface of the ingestion journal.
type JournalReader interface {
	Recent(ctx context.Context, page, pageSize int) ([]journal.Event, int, error)
}
