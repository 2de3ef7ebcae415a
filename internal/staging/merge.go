// merge.go - Deduplicating merge of validated batches into the staged set
package staging

import "github.com/docstager/backend/internal/models"

// MergeResult is the outcome of merging one accepted batch.
type MergeResult struct {
	Result  models.FileSet
	Skipped []models.StagedFile
}

// Merge combines an accepted batch with the existing staged set under the
// name-uniqueness invariant. A candidate whose name is already staged
// (case-sensitive, exact match) is skipped and the existing entry retained
// unchanged: first write wins, resubmission never overwrites. Survivors are
// appended after the existing members in their original relative order;
// prior members are never reordered or removed.
//
// Pure function, linear in len(existing)+len(batch).
func Merge(existing models.FileSet, batch []models.StagedFile) MergeResult {
	seen := existing.NameIndex()

	added := make([]models.StagedFile, 0, len(batch))
	skipped := make([]models.StagedFile, 0)

	for _, f := range batch {
		if _, dup := seen[f.Name]; dup {
			skipped = append(skipped, f)
			continue
		}
		seen[f.Name] = struct{}{}
		added = append(added, f)
	}

	return MergeResult{
		Result:  existing.Append(added...),
		Skipped: skipped,
	}
}
