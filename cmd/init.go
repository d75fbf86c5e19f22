// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/BIMSBbioinfo/pigx-common/internal/paths"
)

const (
	settingsTemplateName    = "settings.yaml"
	sampleSheetTemplateName = "sample_sheet.csv"

	sampleSheetTemplate = "name,reads1,reads2\n"
)

// runInit writes the requested template files into the working directory.
// Existing files are never overwritten; a notice is printed and the init
// still succeeds.
func runInit(mode string, layout paths.Layout) error {
	var wantSettings, wantSheet bool
	switch mode {
	case "settings":
		wantSettings = true
	case "sample-sheet":
		wantSheet = true
	case "both":
		wantSettings, wantSheet = true, true
	default:
		return fmt.Errorf("invalid --init argument %q (use settings, sample-sheet or both)", mode)
	}

	if wantSettings {
		if err := initSettings(layout); err != nil {
			return err
		}
	}
	if wantSheet {
		if err := initFile(sampleSheetTemplateName, []byte(sampleSheetTemplate)); err != nil {
			return err
		}
	}
	return nil
}

// initSettings emits the pipeline's default settings with every line
// commented out, so the user uncomments only what they override.
func initSettings(layout paths.Layout) error {
	raw, err := os.ReadFile(layout.DefaultSettings())
	if err != nil {
		return fmt.Errorf("read default settings: %w", err)
	}
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(string(raw), "\n"), "\n") {
		b.WriteString("# ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return initFile(settingsTemplateName, []byte(b.String()))
}

func initFile(name string, data []byte) error {
	if _, err := os.Stat(name); err == nil {
		fmt.Printf("refusing to overwrite existing %s\n", name)
		return nil
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	fmt.Printf("created %s\n", name)
	return nil
}
