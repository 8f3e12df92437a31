package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoCollections      = errors.New("catalog: manifest lists no collections")
	ErrDuplicateName      = errors.New("catalog: duplicate collection name")
	ErrMissingName        = errors.New("catalog: collection without a name")
	ErrNoDocuments        = errors.New("catalog: collection lists no documents")
	ErrUnknownCollection  = errors.New("catalog: unknown collection")
	ErrCollectionDisabled = errors.New("catalog: collection is disabled")
)

// Manifest lists the protocol collections of a catalog.
type Manifest struct {
	// BaseDir is the directory document paths are relative to. A relative
	// BaseDir is resolved against the manifest's own directory.
	BaseDir string `yaml:"base_dir"`
	// Imports are documents every collection may reference but that are not
	// generated, such as the core protocol.
	Imports     []string     `yaml:"imports,omitempty"`
	Collections []Collection `yaml:"collections"`
}

// Collection is one named, versioned set of documents compiled together.
type Collection struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Documents   []string `yaml:"documents"`
	// Disabled, when set, is the reason the collection is skipped.
	Disabled string `yaml:"disabled,omitempty"`
}

// Enabled reports whether the collection takes part in compilation.
func (c Collection) Enabled() bool {
	return strings.TrimSpace(c.Disabled) == ""
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !filepath.IsAbs(m.BaseDir) {
		m.BaseDir = filepath.Join(filepath.Dir(path), m.BaseDir)
	}
	return m, nil
}

// ParseManifest decodes and validates a manifest. Unknown keys are errors.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode catalog manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names and document lists.
func (m *Manifest) Validate() error {
	if len(m.Collections) == 0 {
		return ErrNoCollections
	}
	seen := make(map[string]bool, len(m.Collections))
	for i, c := range m.Collections {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: entry %d", ErrMissingName, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, c.Name)
		}
		seen[c.Name] = true
		if c.Enabled() && len(c.Documents) == 0 {
			return fmt.Errorf("%w: %s", ErrNoDocuments, c.Name)
		}
	}
	return nil
}

// Collection returns the named collection.
func (m *Manifest) Collection(name string) (Collection, error) {
	for _, c := range m.Collections {
		if c.Name == name {
			return c, nil
		}
	}
	return Collection{}, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
}

// Select narrows the manifest to the named collections, keeping manifest
// order. Naming a disabled collection is an error. No names keeps all.
func (m *Manifest) Select(names ...string) (*Manifest, error) {
	if len(names) == 0 {
		return m, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		c, err := m.Collection(n)
		if err != nil {
			return nil, err
		}
		if !c.Enabled() {
			return nil, fmt.Errorf("%w: %s: %s", ErrCollectionDisabled, c.Name, c.Disabled)
		}
		want[n] = true
	}
	out := *m
	out.Collections = nil
	for _, c := range m.Collections {
		if want[c.Name] {
			out.Collections = append(out.Collections, c)
		}
	}
	return &out, nil
}

func (m *Manifest) resolve(doc string) string {
	if filepath.IsAbs(doc) {
		return doc
	}
	return filepath.Join(m.BaseDir, doc)
}
