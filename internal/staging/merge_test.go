package staging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docstager/backend/internal/models"
)

func staged(name string, size int64) models.StagedFile {
	return models.StagedFile{Name: name, Size: size}
}

func TestMerge_EmptyExisting(t *testing.T) {
	mr := Merge(models.NewFileSet(), []models.StagedFile{staged("a.pdf", 10)})

	assert.Equal(t, []string{"a.pdf"}, mr.Result.Names())
	assert.Empty(t, mr.Skipped)
}

func TestMerge_DuplicateRetainsOriginal(t *testing.T) {
	// Resubmitting a.pdf with a different size must not overwrite the
	// staged entry: first write wins.
	existing := models.NewFileSet(staged("a.pdf", 10*1024*1024))

	mr := Merge(existing, []models.StagedFile{
		staged("a.pdf", 5*1024*1024),
		staged("b.docx", 2*1024*1024),
	})

	require.Equal(t, []string{"a.pdf", "b.docx"}, mr.Result.Names())

	kept, ok := mr.Result.Get("a.pdf")
	require.True(t, ok)
	assert.Equal(t, int64(10*1024*1024), kept.Size)

	require.Len(t, mr.Skipped, 1)
	assert.Equal(t, "a.pdf", mr.Skipped[0].Name)
	assert.Equal(t, int64(5*1024*1024), mr.Skipped[0].Size)
}

func TestMerge_OrderPreserved(t *testing.T) {
	existing := models.NewFileSet(staged("one.pdf", 1), staged("two.pdf", 2))

	mr := Merge(existing, []models.StagedFile{
		staged("three.pdf", 3),
		staged("one.pdf", 99),
		staged("four.pdf", 4),
	})

	assert.Equal(t, []string{"one.pdf", "two.pdf", "three.pdf", "four.pdf"}, mr.Result.Names())
}

func TestMerge_Idempotent(t *testing.T) {
	existing := models.NewFileSet(staged("a.pdf", 1))
	batch := []models.StagedFile{staged("b.pdf", 2), staged("c.pdf", 3)}

	once := Merge(existing, batch)
	twice := Merge(once.Result, batch)

	assert.Equal(t, once.Result.Names(), twice.Result.Names())
	assert.Equal(t, once.Result.Files(), twice.Result.Files())
	assert.Len(t, twice.Skipped, len(batch))
}

func TestMerge_InBatchDuplicates(t *testing.T) {
	mr := Merge(models.NewFileSet(), []models.StagedFile{
		staged("a.pdf", 1),
		staged("a.pdf", 2),
	})

	require.Equal(t, []string{"a.pdf"}, mr.Result.Names())
	kept, _ := mr.Result.Get("a.pdf")
	assert.Equal(t, int64(1), kept.Size)
	require.Len(t, mr.Skipped, 1)
}

func TestMerge_UniquenessInvariant(t *testing.T) {
	// Any sequence of merges keeps names unique.
	set := models.NewFileSet()
	batches := [][]models.StagedFile{
		{staged("a.pdf", 1), staged("b.pdf", 2)},
		{staged("b.pdf", 3), staged("c.pdf", 4)},
		{staged("a.pdf", 5), staged("c.pdf", 6), staged("d.pdf", 7)},
	}

	for _, batch := range batches {
		set = Merge(set, batch).Result
	}

	names := set.Names()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		assert.False(t, seen[n], "duplicate name %s", n)
		seen[n] = true
	}
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}, names)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := models.NewFileSet(staged("a.pdf", 1))
	before := existing.Files()

	Merge(existing, []models.StagedFile{staged("b.pdf", 2)})

	assert.Equal(t, before, existing.Files())
}
