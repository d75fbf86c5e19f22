package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BIMSBbioinfo/pigx-common/internal/paths"
)

// chdir switches to dir for the duration of the test, like t.Chdir in
// newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}

func testLayout(t *testing.T) paths.Layout {
	t.Helper()
	dataDir := t.TempDir()
	defaults := "locations:\n  output-dir: out/\nexecution:\n  jobs: 6\n"
	if err := os.WriteFile(filepath.Join(dataDir, "settings.yaml"), []byte(defaults), 0o644); err != nil {
		t.Fatal(err)
	}
	return paths.Layout{Pipeline: "rnaseq", DataDir: dataDir}
}

func TestInitBothCreatesTemplates(t *testing.T) {
	layout := testLayout(t)
	chdir(t, t.TempDir())

	if err := runInit("both", layout); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	settings, err := os.ReadFile(settingsTemplateName)
	if err != nil {
		t.Fatalf("settings template missing: %v", err)
	}
	for _, line := range strings.Split(strings.TrimRight(string(settings), "\n"), "\n") {
		if !strings.HasPrefix(line, "# ") {
			t.Fatalf("settings template line not commented: %q", line)
		}
	}

	sheet, err := os.ReadFile(sampleSheetTemplateName)
	if err != nil {
		t.Fatalf("sample sheet template missing: %v", err)
	}
	if string(sheet) != sampleSheetTemplate {
		t.Fatalf("sample sheet = %q", sheet)
	}

	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("init touched other files: %v", entries)
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	layout := testLayout(t)
	chdir(t, t.TempDir())

	if err := os.WriteFile(settingsTemplateName, []byte("mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sampleSheetTemplateName, []byte("mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// still succeeds, nothing clobbered
	if err := runInit("both", layout); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	for _, name := range []string{settingsTemplateName, sampleSheetTemplateName} {
		raw, err := os.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		if string(raw) != "mine\n" {
			t.Fatalf("%s was overwritten: %q", name, raw)
		}
	}
}

func TestInitSingleModes(t *testing.T) {
	layout := testLayout(t)
	chdir(t, t.TempDir())

	if err := runInit("settings", layout); err != nil {
		t.Fatalf("runInit settings: %v", err)
	}
	if _, err := os.Stat(sampleSheetTemplateName); !os.IsNotExist(err) {
		t.Fatal("sample sheet created by --init settings")
	}

	if err := runInit("sample-sheet", layout); err != nil {
		t.Fatalf("runInit sample-sheet: %v", err)
	}
	if _, err := os.Stat(sampleSheetTemplateName); err != nil {
		t.Fatal("sample sheet not created")
	}
}

func TestInitRejectsUnknownMode(t *testing.T) {
	if err := runInit("everything", paths.Layout{}); err == nil {
		t.Fatal("expected error for unknown init mode")
	}
}
