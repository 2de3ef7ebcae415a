package models

import "time"

// RejectReason classifies why a candidate file was not staged.
type RejectReason string

const (
	ReasonTooLarge        RejectReason = "too_large"
	ReasonUnsupportedType RejectReason = "unsupported_type"
	ReasonTooManyFiles    RejectReason = "too_many_files"
	ReasonDuplicateName   RejectReason = "duplicate_name"
)

// RawFileDescriptor is the name/size/type extraction from a single
// file-selection event, prior to validation.
type RawFileDescriptor struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"` // declared extension or MIME type, may be empty
}

// StagedFile is a file the user has queued for submission. Content is
// referenced through Handle, never copied into the staged set.
type StagedFile struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Type      string    `json:"type"`
	Handle    string    `json:"handle"`              // blob store ID
	MediaType string    `json:"mediaType,omitempty"` // sniffed on save
	StagedAt  time.Time `json:"stagedAt"`
}

// Descriptor returns the raw descriptor view of a staged file.
func (f StagedFile) Descriptor() RawFileDescriptor {
	return RawFileDescriptor{Name: f.Name, Size: f.Size, Type: f.Type}
}

// RejectedFile pairs a candidate with the reason it was turned away.
type RejectedFile struct {
	File   RawFileDescriptor `json:"file"`
	Reason RejectReason      `json:"reason"`
}
