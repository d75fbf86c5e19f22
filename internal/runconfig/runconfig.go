// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runconfig writes the JSON run configuration consumed by the
// workflow engine. Output is deterministic: sorted keys, four-space
// indentation, ASCII-escaped strings. Identical inputs produce
// byte-identical files, keeping the config diff-friendly.
package runconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf16"
	"unicode/utf8"
)

// Encode renders doc as deterministic JSON.
func Encode(doc map[string]any) ([]byte, error) {
	raw, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode run configuration: %w", err)
	}
	return escapeASCII(raw), nil
}

// WriteFile writes the run configuration to path with a trailing newline.
func WriteFile(path string, doc map[string]any) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a previously written run configuration, for the
// reuse-configfile path.
func ReadFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return doc, nil
}

// escapeASCII rewrites non-ASCII runes to \uXXXX escapes. encoding/json
// emits UTF-8 verbatim; the engine contract is plain-ASCII JSON. Non-ASCII
// bytes can only occur inside string literals, so a whole-buffer pass is
// safe.
func escapeASCII(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for i := 0; i < len(in); {
		r, size := utf8.DecodeRune(in[i:])
		if r < utf8.RuneSelf {
			out = append(out, in[i])
			i++
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			out = append(out, fmt.Sprintf(`\u%04x\u%04x`, hi, lo)...)
		} else {
			out = append(out, fmt.Sprintf(`\u%04x`, r)...)
		}
		i += size
	}
	return out
}
