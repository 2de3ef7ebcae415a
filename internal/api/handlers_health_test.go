// handlers_health_test.go - Tests for the health handler
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/docstager/backend/internal/ingest"
	"github.com/docstager/backend/internal/models"
	"github.com/docstager/backend/internal/staging"
)

func TestHealthHandler_HandleHealth(t *testing.T) {
	tests := []struct {
		name        string
		seed        int
		withJournal bool
		wantJournal string
	}{
		{name: "empty set with journal", withJournal: true, wantJournal: "ok"},
		{name: "staged files without journal", seed: 2, wantJournal: "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, store, _ := newTestDeps(staging.DefaultPolicy())

			names := []string{"a.pdf", "b.docx"}
			for i := 0; i < tt.seed; i++ {
				if _, err := pipeline.AddFiles(ingest.SourceAPI, []ingest.Candidate{
					{Descriptor: models.RawFileDescriptor{Name: names[i], Size: 1}},
				}); err != nil {
					t.Fatalf("seeding files: %v", err)
				}
			}

			var journal JournalReader
			if tt.withJournal {
				journal = &stubJournalReader{}
			}
			handler := NewHealthHandler("1.2.3", store, journal)

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler.HandleHealth(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}

			var resp map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp["status"] != "ok" {
				t.Errorf("expected status ok, got %v", resp["status"])
			}
			if resp["version"] != "1.2.3" {
				t.Errorf("expected version 1.2.3, got %v", resp["version"])
			}
			if got := int(resp["stagedFiles"].(float64)); got != tt.seed {
				t.Errorf("expected stagedFiles %d, got %d", tt.seed, got)
			}
			if resp["journal"] != tt.wantJournal {
				t.Errorf("expected journal %q, got %v", tt.wantJournal, resp["journal"])
			}
		})
	}
}
