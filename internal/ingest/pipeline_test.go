package ingest

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/docstager/backend/internal/journal"
	"github.com/docstager/backend/internal/models"
	"github.com/docstager/backend/internal/staging"
	"github.com/docstager/backend/internal/state"
	"github.com/docstager/backend/internal/storage"
	"github.com/docstager/backend/internal/testutil"
)

// stubRecorder collects journal events in memory
type stubRecorder struct {
	mu     sync.Mutex
	events []journal.Event
}

func (r *stubRecorder) Record(events []journal.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *stubRecorder) outcomes(o journal.Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

func newTestPipeline(policy staging.Policy) (*Pipeline, *state.Store, *testutil.MockBlobStore, *stubRecorder) {
	store := state.NewStore()
	blobs := testutil.NewMockBlobStore()
	rec := &stubRecorder{}
	return NewPipeline(policy, store, blobs, rec, nil), store, blobs, rec
}

func candidate(name string, size int64) Candidate {
	return Candidate{
		Descriptor: models.RawFileDescriptor{Name: name, Size: size},
		Content:    strings.NewReader(strings.Repeat("x", int(size))),
	}
}

func TestAddFiles_SingleFile(t *testing.T) {
	p, store, blobs, _ := newTestPipeline(staging.PermissivePolicy())

	report, err := p.AddFiles(SourcePicker, []Candidate{candidate("a.pdf", 64)})
	if err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}

	if len(report.Staged) != 1 || report.Staged[0].Name != "a.pdf" {
		t.Fatalf("Expected a.pdf staged, got %+v", report.Staged)
	}
	if len(report.Rejected) != 0 || len(report.Skipped) != 0 {
		t.Errorf("Expected clean report, got %+v", report)
	}

	files := store.Get().Files
	if got := files.Names(); len(got) != 1 || got[0] != "a.pdf" {
		t.Errorf("Expected state [a.pdf], got %v", got)
	}

	staged, _ := files.Get("a.pdf")
	if staged.Handle == "" {
		t.Error("Expected staged file to reference a blob handle")
	}
	if blobs.Len() != 1 {
		t.Errorf("Expected 1 blob, got %d", blobs.Len())
	}
}

func TestAddFiles_DuplicateKeepsOriginal(t *testing.T) {
	p, store, blobs, rec := newTestPipeline(staging.PermissivePolicy())

	if _, err := p.AddFiles(SourcePicker, []Candidate{candidate("a.pdf", 10)}); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}

	report, err := p.AddFiles(SourceDrop, []Candidate{
		candidate("a.pdf", 5),
		candidate("b.docx", 2),
	})
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}

	if len(report.Staged) != 1 || report.Staged[0].Name != "b.docx" {
		t.Fatalf("Expected only b.docx staged, got %+v", report.Staged)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].File.Name != "a.pdf" {
		t.Fatalf("Expected a.pdf skipped, got %+v", report.Skipped)
	}
	if report.Skipped[0].Reason != models.ReasonDuplicateName {
		t.Errorf("Expected duplicate_name reason, got %s", report.Skipped[0].Reason)
	}

	// Original entry retained, duplicate's content never persisted.
	kept, _ := store.Get().Files.Get("a.pdf")
	if kept.Size != 10 {
		t.Errorf("Expected original size 10, got %d", kept.Size)
	}
	if blobs.Len() != 2 {
		t.Errorf("Expected 2 blobs (a + b), got %d", blobs.Len())
	}
	if got := rec.outcomes(journal.OutcomeSkipped); got != 1 {
		t.Errorf("Expected 1 skipped journal event, got %d", got)
	}
}

func TestAddFiles_OversizeRejected(t *testing.T) {
	p, store, _, rec := newTestPipeline(staging.DefaultPolicy())

	report, err := p.AddFiles(SourceDrop, []Candidate{
		{Descriptor: models.RawFileDescriptor{Name: "big.pdf", Size: 60 * 1024 * 1024}},
		candidate("small.pdf", 64),
	})
	if err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}

	if len(report.Rejected) != 1 || report.Rejected[0].File.Name != "big.pdf" {
		t.Fatalf("Expected big.pdf rejected, got %+v", report.Rejected)
	}
	if report.Rejected[0].Reason != models.ReasonTooLarge {
		t.Errorf("Expected too_large, got %s", report.Rejected[0].Reason)
	}
	if got := store.Get().Files.Names(); len(got) != 1 || got[0] != "small.pdf" {
		t.Errorf("Expected state [small.pdf], got %v", got)
	}
	if got := rec.outcomes(journal.OutcomeRejected); got != 1 {
		t.Errorf("Expected 1 rejected journal event, got %d", got)
	}
}

func TestAddFiles_CountCap(t *testing.T) {
	policy := staging.DefaultPolicy()
	policy.MaxFiles = 2
	p, store, _, _ := newTestPipeline(policy)

	report, err := p.AddFiles(SourcePicker, []Candidate{
		candidate("a.pdf", 1),
		candidate("b.pdf", 2),
		candidate("c.pdf", 3),
	})
	if err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}

	if len(report.Staged) != 2 {
		t.Fatalf("Expected 2 staged, got %d", len(report.Staged))
	}
	if len(report.Rejected) != 1 || report.Rejected[0].Reason != models.ReasonTooManyFiles {
		t.Fatalf("Expected c.pdf rejected too_many_files, got %+v", report.Rejected)
	}
	if got := store.Get().Files.Names(); len(got) != 2 {
		t.Errorf("Expected 2 files staged, got %v", got)
	}

	// A full set rejects the entire next batch.
	report, err = p.AddFiles(SourcePicker, []Candidate{candidate("d.pdf", 4)})
	if err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}
	if len(report.Staged) != 0 || len(report.Rejected) != 1 {
		t.Errorf("Expected d.pdf rejected, got %+v", report)
	}
}

func TestAddFiles_EmptyBatch(t *testing.T) {
	p, _, _, rec := newTestPipeline(staging.DefaultPolicy())

	report, err := p.AddFiles(SourceDrop, nil)
	if err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}
	if len(report.Staged)+len(report.Rejected)+len(report.Skipped) != 0 {
		t.Errorf("Expected empty report, got %+v", report)
	}
	if len(rec.events) != 0 {
		t.Errorf("Expected no journal events, got %d", len(rec.events))
	}
}

func TestAddFiles_OneCommitPerBatch(t *testing.T) {
	p, store, _, _ := newTestPipeline(staging.PermissivePolicy())

	commits := 0
	defer store.Subscribe(func(state.AppState) { commits++ })()

	if _, err := p.AddFiles(SourcePicker, []Candidate{
		candidate("a.pdf", 1),
		candidate("b.pdf", 2),
		candidate("c.pdf", 3),
	}); err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}

	if commits != 1 {
		t.Errorf("Expected exactly 1 state commit for the batch, got %d", commits)
	}
}

func TestAddFiles_NoCommitWhenNothingStaged(t *testing.T) {
	p, store, _, _ := newTestPipeline(staging.DefaultPolicy())

	commits := 0
	defer store.Subscribe(func(state.AppState) { commits++ })()

	if _, err := p.AddFiles(SourceDrop, []Candidate{
		{Descriptor: models.RawFileDescriptor{Name: "big.pdf", Size: 60 * 1024 * 1024}},
	}); err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}

	if commits != 0 {
		t.Errorf("Expected no commit for an all-rejected batch, got %d", commits)
	}
}

func TestRemoveFile(t *testing.T) {
	p, store, blobs, rec := newTestPipeline(staging.PermissivePolicy())

	if _, err := p.AddFiles(SourcePicker, []Candidate{
		candidate("a.pdf", 1),
		candidate("b.docx", 2),
	}); err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}

	removed, err := p.RemoveFile("a.pdf")
	if err != nil {
		t.Fatalf("RemoveFile failed: %v", err)
	}
	if !removed {
		t.Fatal("Expected a.pdf to be removed")
	}

	if got := store.Get().Files.Names(); len(got) != 1 || got[0] != "b.docx" {
		t.Errorf("Expected [b.docx], got %v", got)
	}
	if blobs.Len() != 1 {
		t.Errorf("Expected blob released, %d blobs left", blobs.Len())
	}
	if got := rec.outcomes(journal.OutcomeRemoved); got != 1 {
		t.Errorf("Expected 1 removed journal event, got %d", got)
	}

	// Removing an unknown name is a no-op, not an error.
	removed, err = p.RemoveFile("ghost.pdf")
	if err != nil {
		t.Fatalf("RemoveFile failed: %v", err)
	}
	if removed {
		t.Error("Expected no-op for unknown name")
	}
	if got := store.Get().Files.Len(); got != 1 {
		t.Errorf("Expected set unchanged, got %d files", got)
	}
}

func TestClearFiles(t *testing.T) {
	p, store, blobs, rec := newTestPipeline(staging.PermissivePolicy())

	if _, err := p.AddFiles(SourcePicker, []Candidate{
		candidate("a.pdf", 1),
		candidate("b.docx", 2),
	}); err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}

	if err := p.ClearFiles(); err != nil {
		t.Fatalf("ClearFiles failed: %v", err)
	}

	if got := store.Get().Files.Len(); got != 0 {
		t.Errorf("Expected empty set, got %d files", got)
	}
	if blobs.Len() != 0 {
		t.Errorf("Expected all blobs released, %d left", blobs.Len())
	}
	if got := rec.outcomes(journal.OutcomeCleared); got != 2 {
		t.Errorf("Expected 2 cleared journal events, got %d", got)
	}
}

// flakyBlobStore fails every Save after the first failAfter calls.
type flakyBlobStore struct {
	*testutil.MockBlobStore
	failAfter int
	saves     int
}

func (s *flakyBlobStore) Save(name string, r io.Reader) (*storage.Blob, error) {
	s.saves++
	if s.saves > s.failAfter {
		return nil, errors.New("disk full")
	}
	return s.MockBlobStore.Save(name, r)
}

func TestAddFiles_FailedBatchReleasesBlobs(t *testing.T) {
	store := state.NewStore()
	blobs := &flakyBlobStore{MockBlobStore: testutil.NewMockBlobStore(), failAfter: 1}
	p := NewPipeline(staging.PermissivePolicy(), store, blobs, nil, nil)

	_, err := p.AddFiles(SourcePicker, []Candidate{
		candidate("a.pdf", 4),
		candidate("b.pdf", 4),
	})
	if err == nil {
		t.Fatal("expected AddFiles to fail on the second save")
	}

	if got := store.Get().Files.Len(); got != 0 {
		t.Errorf("expected no state commit, got %d files", got)
	}
	// The blob saved for a.pdf before the failure must be reclaimed.
	if blobs.Len() != 0 {
		t.Errorf("expected no blobs left after a failed batch, got %d", blobs.Len())
	}
}

func TestAddFiles_IdempotentBatch(t *testing.T) {
	p, store, _, _ := newTestPipeline(staging.PermissivePolicy())

	batch := func() []Candidate {
		return []Candidate{candidate("a.pdf", 1), candidate("b.pdf", 2)}
	}

	if _, err := p.AddFiles(SourcePicker, batch()); err != nil {
		t.Fatalf("first AddFiles failed: %v", err)
	}
	after := store.Get().Files.Names()

	if _, err := p.AddFiles(SourcePicker, batch()); err != nil {
		t.Fatalf("second AddFiles failed: %v", err)
	}

	got := store.Get().Files.Names()
	if len(got) != len(after) {
		t.Fatalf("Expected unchanged set %v, got %v", after, got)
	}
	for i := range got {
		if got[i] != after[i] {
			t.Errorf("Order changed at %d: %s vs %s", i, got[i], after[i])
		}
	}
}
