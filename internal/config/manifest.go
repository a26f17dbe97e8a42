package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"civicprofile/internal/errors"
	"civicprofile/internal/geo"
)

//go:embed default_manifest.yaml
var defaultManifest []byte

// Manifest lists the datasets a report run profiles, in report order
type Manifest struct {
	Datasets []DatasetEntry `yaml:"datasets"`
}

// DatasetEntry describes where one dataset comes from and which of its
// columns play which role
type DatasetEntry struct {
	Name           string         `yaml:"name"`
	Title          string         `yaml:"title,omitempty"`
	Path           string         `yaml:"path,omitempty"`
	Query          string         `yaml:"query,omitempty"`
	Sheet          string         `yaml:"sheet,omitempty"`
	DateColumns    []string       `yaml:"date_columns,omitempty"`
	TextColumns    []string       `yaml:"text_columns,omitempty"`
	CategoryColumn string         `yaml:"category_column,omitempty"`
	ExcludeLabels  []string       `yaml:"exclude_labels,omitempty"`
	Contains       *KeywordFilter `yaml:"contains,omitempty"`
	TopN           int            `yaml:"top_n,omitempty"`
	RowLimit       int            `yaml:"row_limit,omitempty"`
	Geo            *geo.Spec      `yaml:"geo,omitempty"`
}

// KeywordFilter matches category labels containing Keyword. Matching rows
// are excluded from the frequency table unless Only is set, in which case
// every other row is excluded instead.
type KeywordFilter struct {
	Keyword       string `yaml:"keyword"`
	CaseSensitive bool   `yaml:"case_sensitive,omitempty"`
	Only          bool   `yaml:"only,omitempty"`
}

// DisplayName returns the title, falling back to the name
func (e DatasetEntry) DisplayName() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Name
}

// Validate checks one entry in isolation
func (e DatasetEntry) Validate() error {
	if e.Name == "" {
		return errors.ConfigInvalid("dataset entry is missing a name")
	}
	if (e.Path == "") == (e.Query == "") {
		return errors.ConfigInvalid(fmt.Sprintf("dataset %s must set exactly one of path or query", e.Name))
	}
	if e.TopN < 0 || e.RowLimit < 0 {
		return errors.ConfigInvalid(fmt.Sprintf("dataset %s: top_n and row_limit must not be negative", e.Name))
	}
	if (len(e.ExcludeLabels) > 0 || e.Contains != nil) && e.CategoryColumn == "" {
		return errors.ConfigInvalid(fmt.Sprintf("dataset %s: category filters require category_column", e.Name))
	}
	if e.Contains != nil && e.Contains.Keyword == "" {
		return errors.ConfigInvalid(fmt.Sprintf("dataset %s: contains filter needs a keyword", e.Name))
	}
	if g := e.Geo; g != nil {
		if g.DateColumn == "" || g.LongitudeColumn == "" || g.LatitudeColumn == "" {
			return errors.ConfigInvalid(fmt.Sprintf("dataset %s: geo needs date, longitude and latitude columns", e.Name))
		}
		if b := g.Bounds; b != nil && (b.MinLongitude > b.MaxLongitude || b.MinLatitude > b.MaxLatitude) {
			return errors.ConfigInvalid(fmt.Sprintf("dataset %s: geo bounds are inverted", e.Name))
		}
	}
	return nil
}

// Validate checks every entry and rejects duplicate names
func (m *Manifest) Validate() error {
	if len(m.Datasets) == 0 {
		return errors.ConfigInvalid("manifest lists no datasets")
	}
	seen := make(map[string]bool, len(m.Datasets))
	for _, e := range m.Datasets {
		if err := e.Validate(); err != nil {
			return err
		}
		if seen[e.Name] {
			return errors.ConfigInvalid(fmt.Sprintf("dataset %s is listed twice", e.Name))
		}
		seen[e.Name] = true
	}
	return nil
}

// Lookup finds an entry by name
func (m *Manifest) Lookup(name string) (DatasetEntry, bool) {
	for _, e := range m.Datasets {
		if e.Name == name {
			return e, true
		}
	}
	return DatasetEntry{}, false
}

// Names returns dataset names in manifest order
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Datasets))
	for i, e := range m.Datasets {
		names[i] = e.Name
	}
	return names
}

// HasQueries reports whether any entry needs a database connection
func (m *Manifest) HasQueries() bool {
	for _, e := range m.Datasets {
		if e.Query != "" {
			return true
		}
	}
	return false
}

// ParseManifest decodes and validates manifest YAML. Unknown keys are errors.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to parse manifest: %w", err))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// DefaultManifest returns the embedded manifest for the three municipal datasets
func DefaultManifest() (*Manifest, error) {
	return ParseManifest(defaultManifest)
}

// LoadManifest reads the manifest at path, or the embedded default when path
// is empty. Relative dataset paths resolve against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return DefaultManifest()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to read manifest: %w", err))
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}

	base := filepath.Dir(path)
	for i := range m.Datasets {
		p := m.Datasets[i].Path
		if p != "" && !filepath.IsAbs(p) {
			m.Datasets[i].Path = filepath.Join(base, p)
		}
	}
	return m, nil
}
