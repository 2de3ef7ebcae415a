// validator.go - Pure intake validation over candidate batches
package staging

import "github.com/docstager/backend/internal/models"

// ValidationResult partitions one candidate batch.
type ValidationResult struct {
	Accepted []models.RawFileDescriptor
	Rejected []models.RejectedFile
}

// Validate partitions candidates into accepted and rejected with reasons.
// It is a pure function: no store access, no side effects, identical input
// yields identical output. An empty batch yields empty slices.
//
// Size is checked first so an oversized file of a disallowed type reports
// too_large, matching what the user most needs to fix.
func Validate(p Policy, candidates []models.RawFileDescriptor) ValidationResult {
	res := ValidationResult{
		Accepted: make([]models.RawFileDescriptor, 0, len(candidates)),
		Rejected: make([]models.RejectedFile, 0),
	}

	for _, c := range candidates {
		switch {
		case c.Size > p.MaxFileSize:
			res.Rejected = append(res.Rejected, models.RejectedFile{File: c, Reason: models.ReasonTooLarge})
		case !p.AllowsExtension(c.Name):
			res.Rejected = append(res.Rejected, models.RejectedFile{File: c, Reason: models.ReasonUnsupportedType})
		default:
			res.Accepted = append(res.Accepted, c)
		}
	}

	return res
}
