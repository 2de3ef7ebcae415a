// handlers_journal.go - Ingestion audit trail handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// JournalHandlerImpl implements the JournalHandler interface
type JournalHandlerImpl struct {
	journal JournalReader
}

// NewJournalHandler creates a new journal handler instance
func NewJournalHandler(journal JournalReader) JournalHandler {
	return &JournalHandlerImpl{journal: journal}
}

// HandleRecentEvents returns journaled ingestion events newest first
func (h *JournalHandlerImpl) HandleRecentEvents(c echo.Context) error {
	if h.journal == nil {
		return NewNotFoundError("journal", "disabled")
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "pageSize", 50)
	if pageSize > 500 {
		pageSize = 500
	}

	events, total, err := h.journal.Recent(c.Request().Context(), page, pageSize)
	if err != nil {
		return NewInternalError("failed to query journal", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":   events,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
