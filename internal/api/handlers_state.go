// handlers_state.go - Shared state snapshot and UI flag handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/docstager/backend/internal/models"
	"github.com/docstager/backend/internal/state"
)

// StateHandlerImpl implements the StateHandler interface
type StateHandlerImpl struct {
	store *state.Store
}

// NewStateHandler creates a new state handler instance
func NewStateHandler(store *state.Store) StateHandler {
	return &StateHandlerImpl{store: store}
}

// stateSnapshot is the wire form of AppState shared by the JSON and
// msgpack encodings.
type stateSnapshot struct {
	Files          []models.StagedFile `json:"files" msgpack:"files"`
	FilesPanelOpen bool                `json:"filesPanelOpen" msgpack:"filesPanelOpen"`
	SelectedModel  string              `json:"selectedModel" msgpack:"selectedModel"`
}

func snapshotOf(s state.AppState) stateSnapshot {
	return stateSnapshot{
		Files:          s.Files.Files(),
		FilesPanelOpen: s.FilesPanelOpen,
		SelectedModel:  s.SelectedModel,
	}
}

// HandleGetState returns the full AppState snapshot as JSON
func (h *StateHandlerImpl) HandleGetState(c echo.Context) error {
	return c.JSON(http.StatusOK, snapshotOf(h.store.Get()))
}

// HandleGetStateMsgpack returns the snapshot in MessagePack format for the
// list panel's compact polling path
func (h *StateHandlerImpl) HandleGetStateMsgpack(c echo.Context) error {
	data, err := msgpack.Marshal(snapshotOf(h.store.Get()))
	if err != nil {
		return NewInternalError("failed to encode state", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleSetPanel sets the filesPanelOpen flag
func (h *StateHandlerImpl) HandleSetPanel(c echo.Context) error {
	var req panelRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Open == nil {
		return NewValidationError("open")
	}

	h.store.Set(state.Partial{FilesPanelOpen: req.Open})
	return c.JSON(http.StatusOK, snapshotOf(h.store.Get()))
}

// HandleSetModel sets the selected analysis model flag
func (h *StateHandlerImpl) HandleSetModel(c echo.Context) error {
	var req modelRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Model == "" {
		return NewValidationError("model")
	}

	h.store.Set(state.Partial{SelectedModel: &req.Model})
	return c.JSON(http.StatusOK, snapshotOf(h.store.Get()))
}

// Request types

type panelRequest struct {
	Open *bool `json:"open"`
}

type modelRequest struct {
	Model string `json:"model"`
}
