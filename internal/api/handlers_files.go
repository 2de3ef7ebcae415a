// handlers_files.go - Staged file operation handlers
package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/docstager/backend/internal/ingest"
	"github.com/docstager/backend/internal/models"
	"github.com/docstager/backend/internal/state"
)

// FilesHandlerImpl implements the FilesHandler interface
type FilesHandlerImpl struct {
	pipeline Ingestor
	store    *state.Store
}

// NewFilesHandler creates a new files handler instance
func NewFilesHandler(pipeline Ingestor, store *state.Store) FilesHandler {
	return &FilesHandlerImpl{
		pipeline: pipeline,
		store:    store,
	}
}

// HandleUploadBinary accepts one multipart request carrying the whole
// file-picker selection. The batch runs through the staging pipeline as a
// single atomic step and the full report comes back so the client can
// surface rejections.
func (h *FilesHandlerImpl) HandleUploadBinary(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("no multipart form provided", err)
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		if single := form.File["file"]; len(single) > 0 {
			fileHeaders = single
		}
	}
	if len(fileHeaders) == 0 {
		return NewValidationError("files")
	}

	batch := make([]ingest.Candidate, 0, len(fileHeaders))
	closers := make([]func() error, 0, len(fileHeaders))
	defer func() {
		for _, close := range closers {
			close()
		}
	}()

	for _, fh := range fileHeaders {
		src, err := fh.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		closers = append(closers, src.Close)

		batch = append(batch, ingest.Candidate{
			Descriptor: models.RawFileDescriptor{
				Name: fh.Filename,
				Size: fh.Size,
				Type: declaredType(fh.Filename, fh.Header.Get("Content-Type")),
			},
			Content: src,
		})
	}

	report, err := h.pipeline.AddFiles(ingest.SourcePicker, batch)
	if err != nil {
		return NewInternalError("failed to stage files", err)
	}

	return c.JSON(http.StatusCreated, report)
}

// HandleUploadFile accepts a single file as base64 JSON
func (h *FilesHandlerImpl) HandleUploadFile(c echo.Context) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	report, err := h.pipeline.AddFiles(ingest.SourceAPI, []ingest.Candidate{{
		Descriptor: models.RawFileDescriptor{
			Name: req.Name,
			Size: int64(len(decoded)),
			Type: declaredType(req.Name, req.Type),
		},
		Content: bytes.NewReader(decoded),
	}})
	if err != nil {
		return NewInternalError("failed to stage file", err)
	}

	return c.JSON(http.StatusCreated, report)
}

// HandleListFiles returns the current staged set in insertion order
func (h *FilesHandlerImpl) HandleListFiles(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Get().Files.Files())
}

// HandleRemoveFile removes one staged file by name. Removing an unknown
// name is a no-op, not an error.
func (h *FilesHandlerImpl) HandleRemoveFile(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return NewValidationError("name")
	}

	if _, err := h.pipeline.RemoveFile(name); err != nil {
		return NewInternalError("failed to remove file", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleClearFiles empties the staged set wholesale
func (h *FilesHandlerImpl) HandleClearFiles(c echo.Context) error {
	if err := h.pipeline.ClearFiles(); err != nil {
		return NewInternalError("failed to clear files", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Request/Response types

type uploadFileRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}

// Helper functions

// declaredType picks the declared type for a descriptor: the content type
// from the event when present, else the file extension.
func declaredType(name, contentType string) string {
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	return strings.TrimPrefix(filepath.Ext(name), ".")
}
