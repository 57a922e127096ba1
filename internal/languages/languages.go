// Package languages holds the static supported-language registry served at
// /languages and consulted before every translation.
package languages

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"chatlibre/internal/core"
)

// ISO 639-1 code/name/native-name table. Loaded once at startup; the registry
// built from it is immutable for the process lifetime.
//
//go:embed iso_639_1.csv
var isoCSV []byte

// Registry is the immutable set of languages the shim accepts as translation
// targets. Safe for concurrent use; never mutated after Load.
type Registry struct {
	list  []core.Language
	names map[string]string
}

// Load builds the registry from the embedded ISO 639-1 table. If overridePath
// is non-empty it must name a YAML file whose entries replace the built-in
// table entirely.
func Load(overridePath string) (*Registry, error) {
	if overridePath != "" {
		return loadOverride(overridePath)
	}

	reader := csv.NewReader(bytes.NewReader(isoCSV))
	reader.FieldsPerRecord = 3
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse embedded language table: %w", err)
	}

	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entry{Code: rec[0], Name: rec[1]})
	}
	return build(entries)
}

// entry is one language row, either from the embedded CSV or an override file.
type entry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

func loadOverride(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read languages file: %w", err)
	}

	var entries []entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse languages file %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("languages file %s declares no languages", path)
	}
	return build(entries)
}

func build(entries []entry) (*Registry, error) {
	names := make(map[string]string, len(entries))
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Code == "" || e.Name == "" {
			return nil, fmt.Errorf("language entry with empty code or name")
		}
		if _, dup := names[e.Code]; dup {
			return nil, fmt.Errorf("duplicate language code %q", e.Code)
		}
		names[e.Code] = e.Name
		codes = append(codes, e.Code)
	}

	// Every language may target every other, matching the reference service:
	// the model is not pair-constrained.
	list := make([]core.Language, 0, len(entries))
	for _, e := range entries {
		list = append(list, core.Language{Code: e.Code, Name: e.Name, Targets: codes})
	}

	return &Registry{list: list, names: names}, nil
}

// Supported reports whether code is an accepted target language. Codes are
// matched exactly as declared (lower case in the built-in table); the "auto"
// sentinel is never a valid target.
func (r *Registry) Supported(code string) bool {
	if code == core.SourceAuto {
		return false
	}
	_, ok := r.names[code]
	return ok
}

// Name returns the display name for a language code, falling back to the code
// itself when unknown. Used to phrase prompts with readable language names.
func (r *Registry) Name(code string) string {
	if name, ok := r.names[code]; ok {
		return name
	}
	return code
}

// List returns the /languages payload. The returned slice is shared and must
// not be modified.
func (r *Registry) List() []core.Language {
	return r.list
}
