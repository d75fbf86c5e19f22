// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings loads the pipeline settings documents and merges user
// overrides into the pipeline defaults.
package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is an open settings tree. The recognised top-level sections are
// "locations", "execution" and "annotation", but unknown keys survive the
// merge and end up in the run configuration untouched.
type Document map[string]any

// LoadFile decodes a YAML settings document. A missing file is an error;
// callers decide whether that is fatal.
func LoadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	var doc Document
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Load reads the pipeline defaults and, when userPath is non-empty, merges
// the user document on top. Either file missing is an error.
func Load(defaultPath, userPath string) (Document, error) {
	def, err := LoadFile(defaultPath)
	if err != nil {
		return nil, fmt.Errorf("default settings: %w", err)
	}
	if userPath == "" {
		return def, nil
	}
	user, err := LoadFile(userPath)
	if err != nil {
		return nil, fmt.Errorf("user settings: %w", err)
	}
	return Merge(def, user), nil
}

// Merge applies override onto def, key-wise and recursively: when both
// sides hold a mapping at the same key the mappings merge, otherwise the
// override value replaces the default outright (sequences included).
// Neither input is mutated.
func Merge(def, override Document) Document {
	out := make(Document, len(def)+len(override))
	for k, v := range def {
		out[k] = v
	}
	for k, v := range override {
		dv, ok := out[k]
		dm, dok := asDocument(dv)
		om, ook := asDocument(v)
		if ok && dok && ook {
			out[k] = Merge(dm, om)
			continue
		}
		out[k] = v
	}
	return out
}

func asDocument(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	default:
		return nil, false
	}
}

// Section returns the mapping at key, or an empty one.
func (d Document) Section(keys ...string) Document {
	cur := d
	for _, k := range keys {
		next, ok := asDocument(cur[k])
		if !ok {
			return Document{}
		}
		cur = next
	}
	return cur
}

// String returns the scalar at the key path rendered as a string, or ""
// when absent or not a scalar.
func (d Document) String(keys ...string) string {
	v, ok := d.lookup(keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case int:
		return fmt.Sprintf("%d", s)
	case bool:
		return fmt.Sprintf("%t", s)
	case float64:
		return fmt.Sprintf("%g", s)
	default:
		return ""
	}
}

// Int returns the integer at the key path, or fallback.
func (d Document) Int(fallback int, keys ...string) int {
	v, ok := d.lookup(keys...)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// Bool returns the boolean at the key path, or fallback. YAML "yes"/"no"
// strings are accepted the way the settings files historically spell them.
func (d Document) Bool(fallback bool, keys ...string) bool {
	v, ok := d.lookup(keys...)
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch b {
		case "yes", "Yes", "true", "True":
			return true
		case "no", "No", "false", "False":
			return false
		}
	}
	return fallback
}

// Set stores value at the key path, materialising intermediate mappings.
func (d Document) Set(value any, keys ...string) {
	cur := d
	for _, k := range keys[:len(keys)-1] {
		next, ok := asDocument(cur[k])
		if !ok {
			next = Document{}
			cur[k] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

func (d Document) lookup(keys ...string) (any, bool) {
	cur := d
	for i, k := range keys {
		v, ok := cur[k]
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return v, true
		}
		next, ok := asDocument(v)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}
