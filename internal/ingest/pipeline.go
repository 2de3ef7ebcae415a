// Package ingest runs the validate → merge → commit pipeline that turns one
// file-selection event into a single atomic update of the shared state.
package ingest

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docstager/backend/internal/journal"
	"github.com/docstager/backend/internal/logging"
	"github.com/docstager/backend/internal/models"
	"github.com/docstager/backend/internal/staging"
	"github.com/docstager/backend/internal/state"
	"github.com/docstager/backend/internal/storage"
)

// Source names the ingestion surface a batch arrived on.
type Source string

const (
	SourceDrop   Source = "drop"
	SourcePicker Source = "picker"
	SourceAPI    Source = "api"
)

// Candidate is one file from a selection event: the descriptor plus a lazy
// handle to the content. Content is only read for files that survive
// validation, dedup and the count cap.
type Candidate struct {
	Descriptor models.RawFileDescriptor
	Content    io.Reader
}

// Report is the full outcome of one batch: what was staged and everything
// that was turned away. Callers decide whether to surface it; the pipeline
// always returns it.
type Report struct {
	BatchID  string                `json:"batchId"`
	Staged   []models.StagedFile   `json:"staged"`
	Rejected []models.RejectedFile `json:"rejected"`
	Skipped  []models.RejectedFile `json:"skipped"`
}

// Recorder receives journal events for each processed batch. The journal
// implements it; tests use a stub.
type Recorder interface {
	Record(events []journal.Event) error
}

// Pipeline drives validation, dedup and the single state commit per batch.
// All mutations of the staged set go through here, serialized so each batch
// is one atomic logical step.
type Pipeline struct {
	mu     sync.Mutex // one batch mutates the staged set at a time
	policy staging.Policy
	store  *state.Store
	blobs  storage.BlobStore
	rec    Recorder
	log    *logging.Logger
}

// NewPipeline wires the ingestion pipeline. rec may be nil to disable
// journaling.
func NewPipeline(policy staging.Policy, store *state.Store, blobs storage.BlobStore, rec Recorder, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.NewNop()
	}
	return &Pipeline{
		policy: policy,
		store:  store,
		blobs:  blobs,
		rec:    rec,
		log:    log.Named("ingest"),
	}
}

// AddFiles processes one candidate batch end to end: validate, enforce the
// staged-set cap, persist surviving content, merge under the uniqueness
// invariant and commit exactly one state replacement. The report lists every
// candidate's fate; rejected and skipped files never reach the state or the
// blob store.
func (p *Pipeline) AddFiles(src Source, batch []Candidate) (*Report, error) {
	report := &Report{
		BatchID:  uuid.New().String(),
		Staged:   make([]models.StagedFile, 0, len(batch)),
		Rejected: make([]models.RejectedFile, 0),
		Skipped:  make([]models.RejectedFile, 0),
	}
	if len(batch) == 0 {
		return report, nil
	}

	descriptors := make([]models.RawFileDescriptor, len(batch))
	content := make(map[string]io.Reader, len(batch))
	for i, c := range batch {
		descriptors[i] = c.Descriptor
		// First occurrence wins also for in-batch duplicates.
		if _, ok := content[c.Descriptor.Name]; !ok {
			content[c.Descriptor.Name] = c.Content
		}
	}

	vr := staging.Validate(p.policy, descriptors)
	report.Rejected = append(report.Rejected, vr.Rejected...)

	// Everything from the state read to the commit runs under the
	// pipeline lock, so the read-merge-replace sequence is one atomic
	// step even with concurrent batches on other connections.
	p.mu.Lock()
	defer p.mu.Unlock()

	existing := p.store.Get().Files
	seen := existing.NameIndex()

	// Partition accepted candidates: duplicates are skipped without
	// touching content, survivors beyond the remaining capacity are
	// rejected with too_many_files. Merge itself stays cap-free.
	capacity := -1
	if p.policy.MaxFiles > 0 {
		capacity = p.policy.MaxFiles - existing.Len()
		if capacity < 0 {
			capacity = 0
		}
	}

	toStage := make([]models.RawFileDescriptor, 0, len(vr.Accepted))
	for _, d := range vr.Accepted {
		if _, dup := seen[d.Name]; dup {
			report.Skipped = append(report.Skipped, models.RejectedFile{File: d, Reason: models.ReasonDuplicateName})
			continue
		}
		if capacity == 0 {
			report.Rejected = append(report.Rejected, models.RejectedFile{File: d, Reason: models.ReasonTooManyFiles})
			continue
		}
		if capacity > 0 {
			capacity--
		}
		seen[d.Name] = struct{}{}
		toStage = append(toStage, d)
	}

	staged := make([]models.StagedFile, 0, len(toStage))
	for _, d := range toStage {
		f, err := p.stage(d, content[d.Name])
		if err != nil {
			// Nothing is committed on this path; release the blobs
			// already persisted for earlier survivors so a failed
			// batch leaves no orphaned content behind.
			p.releaseBlobs(staged)
			return report, fmt.Errorf("staging %s: %w", d.Name, err)
		}
		staged = append(staged, f)
	}

	mr := staging.Merge(existing, staged)
	for _, f := range mr.Skipped {
		// Unreachable after the partition above; kept so the merge
		// contract is honored even if a caller bypasses AddFiles.
		report.Skipped = append(report.Skipped, models.RejectedFile{File: f.Descriptor(), Reason: models.ReasonDuplicateName})
	}
	report.Staged = staged

	if len(staged) > 0 {
		files := mr.Result
		p.store.Set(state.Partial{Files: &files})
	}

	p.journalBatch(src, report)
	p.log.Info("batch processed",
		zap.String("batch", report.BatchID),
		zap.String("source", string(src)),
		zap.Int("staged", len(report.Staged)),
		zap.Int("rejected", len(report.Rejected)),
		zap.Int("skipped", len(report.Skipped)))

	return report, nil
}

// RemoveFile drops one staged file by name and deletes its content blob.
// Removing an unknown name is a no-op, not an error.
func (p *Pipeline) RemoveFile(name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	files := p.store.Get().Files
	next, removed, ok := files.Remove(name)
	if !ok {
		return false, nil
	}

	p.store.Set(state.Partial{Files: &next})

	if removed.Handle != "" {
		if err := p.blobs.Delete(removed.Handle); err != nil {
			p.log.Warn("blob delete failed", zap.String("file", name), zap.Error(err))
		}
	}

	p.journalEvents([]journal.Event{{
		BatchID:  uuid.New().String(),
		Source:   string(SourceAPI),
		FileName: name,
		Size:     removed.Size,
		Outcome:  journal.OutcomeRemoved,
	}})

	return true, nil
}

// ClearFiles empties the staged set wholesale, releasing every content blob.
// This is the reset entry point for the submission collaborator.
func (p *Pipeline) ClearFiles() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	files := p.store.Get().Files
	empty := models.NewFileSet()
	p.store.Set(state.Partial{Files: &empty})

	events := make([]journal.Event, 0, files.Len())
	batchID := uuid.New().String()
	for _, f := range files.Files() {
		if f.Handle != "" {
			if err := p.blobs.Delete(f.Handle); err != nil {
				p.log.Warn("blob delete failed", zap.String("file", f.Name), zap.Error(err))
			}
		}
		events = append(events, journal.Event{
			BatchID:  batchID,
			Source:   string(SourceAPI),
			FileName: f.Name,
			Size:     f.Size,
			Outcome:  journal.OutcomeCleared,
		})
	}

	p.journalEvents(events)
	return nil
}

// releaseBlobs deletes the content blobs behind the given staged entries.
func (p *Pipeline) releaseBlobs(files []models.StagedFile) {
	for _, f := range files {
		if f.Handle == "" {
			continue
		}
		if err := p.blobs.Delete(f.Handle); err != nil {
			p.log.Warn("blob delete failed", zap.String("file", f.Name), zap.Error(err))
		}
	}
}

// stage persists content and builds the staged entry for one survivor.
func (p *Pipeline) stage(d models.RawFileDescriptor, content io.Reader) (models.StagedFile, error) {
	f := models.StagedFile{
		Name:     d.Name,
		Size:     d.Size,
		Type:     d.Type,
		StagedAt: time.Now(),
	}

	if content == nil {
		// Descriptor-only ingestion (tests, dry adds): stage without
		// content; the handle stays empty until submission needs bytes.
		return f, nil
	}

	blob, err := p.blobs.Save(d.Name, content)
	if err != nil {
		return models.StagedFile{}, err
	}

	f.Handle = blob.Handle
	f.MediaType = blob.MediaType
	if blob.Size > 0 {
		f.Size = blob.Size
	}
	return f, nil
}

func (p *Pipeline) journalBatch(src Source, report *Report) {
	events := make([]journal.Event, 0, len(report.Staged)+len(report.Rejected)+len(report.Skipped))
	for _, f := range report.Staged {
		events = append(events, journal.Event{
			BatchID: report.BatchID, Source: string(src),
			FileName: f.Name, Size: f.Size, Outcome: journal.OutcomeStaged,
		})
	}
	for _, r := range report.Rejected {
		events = append(events, journal.Event{
			BatchID: report.BatchID, Source: string(src),
			FileName: r.File.Name, Size: r.File.Size,
			Outcome: journal.OutcomeRejected, Reason: string(r.Reason),
		})
	}
	for _, r := range report.Skipped {
		events = append(events, journal.Event{
			BatchID: report.BatchID, Source: string(src),
			FileName: r.File.Name, Size: r.File.Size,
			Outcome: journal.OutcomeSkipped, Reason: string(r.Reason),
		})
	}
	p.journalEvents(events)
}

func (p *Pipeline) journalEvents(events []journal.Event) {
	if p.rec == nil || len(events) == 0 {
		return
	}
	if err := p.rec.Record(events); err != nil {
		p.log.Warn("journal write failed", zap.Error(err))
	}
}
