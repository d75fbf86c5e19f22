package runconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodeIsDeterministic(t *testing.T) {
	doc := map[string]any{
		"locations": map[string]any{
			"output-dir":   "/data/out",
			"sample-sheet": "/data/sheet.csv",
		},
		"execution": map[string]any{"jobs": 6},
	}

	first, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("identical inputs produced different output")
	}
}

func TestEncodeSortsKeys(t *testing.T) {
	doc := map[string]any{"zebra": 1, "alpha": 2, "mid": 3}
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := string(out)
	if !(strings.Index(s, "alpha") < strings.Index(s, "mid") && strings.Index(s, "mid") < strings.Index(s, "zebra")) {
		t.Fatalf("keys not sorted:\n%s", s)
	}
}

func TestEncodeUsesFourSpaceIndent(t *testing.T) {
	out, err := Encode(map[string]any{"a": map[string]any{"b": 1}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(out), "\n    \"a\"") {
		t.Fatalf("expected four-space indent:\n%s", out)
	}
}

func TestEncodeEscapesNonASCII(t *testing.T) {
	out, err := Encode(map[string]any{"name": "müller"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `m\u00fcller`) {
		t.Fatalf("expected \\u00fc escape, got:\n%s", s)
	}
	for _, b := range out {
		if b > 127 {
			t.Fatalf("non-ASCII byte %x survived encoding", b)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	doc := map[string]any{
		"locations": map[string]any{"output-dir": "/data/out"},
	}
	if err := WriteFile(path, doc); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(raw, []byte("\n")) {
		t.Fatal("config file should end with a newline")
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	locs, ok := got["locations"].(map[string]any)
	if !ok {
		t.Fatalf("locations missing from %v", got)
	}
	if locs["output-dir"] != "/data/out" {
		t.Fatalf("output-dir = %v", locs["output-dir"])
	}
}

func TestWriteFileIsByteIdenticalAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	doc := map[string]any{
		"b": []any{"x", "y"},
		"a": map[string]any{"nested": "ünïcode"},
	}
	p1 := filepath.Join(dir, "one.json")
	p2 := filepath.Join(dir, "two.json")
	if err := WriteFile(p1, doc); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(p2, doc); err != nil {
		t.Fatal(err)
	}
	one, _ := os.ReadFile(p1)
	two, _ := os.ReadFile(p2)
	if !bytes.Equal(one, two) {
		t.Fatal("repeated writes differ")
	}
}
