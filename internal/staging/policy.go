// policy.go - Intake policy configuration
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxFileSize is the per-file ceiling: 50 MiB.
const MaxFileSize int64 = 50 * 1024 * 1024

// MaxStagedFiles is the advertised cap on the staged set.
const MaxStagedFiles = 20

// DefaultExtensions is the advertised allow-list.
var DefaultExtensions = []string{"pdf", "docx", "xlsx", "pptx", "png", "jpg", "jpeg", "zip"}

// Policy controls what the intake validator accepts. The zero value is not
// usable; start from DefaultPolicy or LoadPolicy.
type Policy struct {
	MaxFileSize       int64    `yaml:"maxFileSize"`
	MaxFiles          int      `yaml:"maxFiles"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
	EnforceTypes      bool     `yaml:"enforceTypes"`

	extIndex map[string]struct{}
}

// DefaultPolicy enforces the advertised limits: 50 MiB per file, 20 files,
// fixed extension allow-list.
func DefaultPolicy() Policy {
	p := Policy{
		MaxFileSize:       MaxFileSize,
		MaxFiles:          MaxStagedFiles,
		AllowedExtensions: append([]string(nil), DefaultExtensions...),
		EnforceTypes:      true,
	}
	p.buildIndex()
	return p
}

// PermissivePolicy reproduces the historical behavior: only the size limit
// and name-dedup are enforced, types pass through and no count cap applies.
func PermissivePolicy() Policy {
	p := Policy{
		MaxFileSize:  MaxFileSize,
		MaxFiles:     0, // unlimited
		EnforceTypes: false,
	}
	p.buildIndex()
	return p
}

// LoadPolicy reads a policy YAML file. Missing fields fall back to the
// default policy; a missing file returns the default unchanged.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("reading policy file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return DefaultPolicy(), fmt.Errorf("parsing policy file: %w", err)
	}

	if p.MaxFileSize <= 0 {
		p.MaxFileSize = MaxFileSize
	}
	if len(p.AllowedExtensions) == 0 {
		p.AllowedExtensions = append([]string(nil), DefaultExtensions...)
	}
	p.buildIndex()
	return p, nil
}

func (p *Policy) buildIndex() {
	p.extIndex = make(map[string]struct{}, len(p.AllowedExtensions))
	for _, ext := range p.AllowedExtensions {
		p.extIndex[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
}

// AllowsExtension reports whether the file name's extension is on the
// allow-list. Always true when type enforcement is off.
func (p Policy) AllowsExtension(name string) bool {
	if !p.EnforceTypes {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := p.extIndex[ext]
	return ok
}
