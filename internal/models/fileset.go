package models

import "encoding/json"

// FileSet is the ordered collection of staged files. Invariants: no two
// members share a name, and insertion order is preserved across merges.
// The set is owned by the state store; everything here returns copies so
// callers cannot mutate the canonical set in place.
type FileSet struct {
	files []StagedFile
}

// NewFileSet builds a set from the given files in order. Duplicate names
// after the first occurrence are dropped.
func NewFileSet(files ...StagedFile) FileSet {
	s := FileSet{files: make([]StagedFile, 0, len(files))}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		s.files = append(s.files, f)
	}
	return s
}

// Len returns the number of staged files.
func (s FileSet) Len() int { return len(s.files) }

// Files returns the members in insertion order as a fresh slice.
func (s FileSet) Files() []StagedFile {
	out := make([]StagedFile, len(s.files))
	copy(out, s.files)
	return out
}

// Names returns the member names in insertion order.
func (s FileSet) Names() []string {
	names := make([]string, len(s.files))
	for i, f := range s.files {
		names[i] = f.Name
	}
	return names
}

// Contains reports whether a file with the exact name is staged.
func (s FileSet) Contains(name string) bool {
	for _, f := range s.files {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Get returns the staged file with the given name.
func (s FileSet) Get(name string) (StagedFile, bool) {
	for _, f := range s.files {
		if f.Name == name {
			return f, true
		}
	}
	return StagedFile{}, false
}

// NameIndex returns a presence map for O(1) collision checks during merge.
func (s FileSet) NameIndex() map[string]struct{} {
	idx := make(map[string]struct{}, len(s.files))
	for _, f := range s.files {
		idx[f.Name] = struct{}{}
	}
	return idx
}

// Append returns a new set with the files added at the end. Callers are
// expected to have checked uniqueness already (merge does).
func (s FileSet) Append(files ...StagedFile) FileSet {
	out := make([]StagedFile, 0, len(s.files)+len(files))
	out = append(out, s.files...)
	out = append(out, files...)
	return FileSet{files: out}
}

// Remove returns a new set without the named file and the removed entry.
// Removing an absent name is a no-op.
func (s FileSet) Remove(name string) (FileSet, StagedFile, bool) {
	for i, f := range s.files {
		if f.Name == name {
			out := make([]StagedFile, 0, len(s.files)-1)
			out = append(out, s.files[:i]...)
			out = append(out, s.files[i+1:]...)
			return FileSet{files: out}, f, true
		}
	}
	return s, StagedFile{}, false
}

// Clone returns a deep copy of the set.
func (s FileSet) Clone() FileSet {
	return FileSet{files: s.Files()}
}

// MarshalJSON encodes the set as a plain array of staged files.
func (s FileSet) MarshalJSON() ([]byte, error) {
	if s.files == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.files)
}

// UnmarshalJSON decodes a plain array, re-applying the uniqueness invariant.
func (s *FileSet) UnmarshalJSON(data []byte) error {
	var files []StagedFile
	if err := json.Unmarshal(data, &files); err != nil {
		return err
	}
	*s = NewFileSet(files...)
	return nil
}
