// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workspace prepares the scratch directory under the output
// directory and pins tool binaries into an isolated bin directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BIMSBbioinfo/pigx-common/internal/paths"
	"github.com/BIMSBbioinfo/pigx-common/internal/runctx"
)

// WorkDirName is the scratch directory created under the output directory.
const WorkDirName = "pigx_work"

// Prepare creates <outputDir>/pigx_work and an isolated bin directory with
// symlinks to the pinned pandoc binaries, prepends that directory to the
// context PATH, and points the R library overrides at /dev/null so the
// pinned tools never pick up user libraries.
//
// The work directory creation is idempotent; the bin directory is recreated
// on every run so stale links cannot survive an upgrade.
func Prepare(outputDir string, layout paths.Layout, ctx *runctx.Context) (string, error) {
	if _, err := os.Stat(filepath.Dir(outputDir)); err != nil {
		return "", fmt.Errorf("parent of output directory %s does not exist", outputDir)
	}
	workDir := filepath.Join(outputDir, WorkDirName)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", workDir, err)
	}

	binDir := filepath.Join(workDir, "bin")
	if err := os.RemoveAll(binDir); err != nil {
		return "", fmt.Errorf("clear %s: %w", binDir, err)
	}
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", binDir, err)
	}

	links := map[string]string{
		"pandoc":          layout.Pandoc,
		"pandoc-citeproc": layout.PandocCiteproc,
	}
	for name, src := range links {
		if _, err := os.Stat(src); err != nil {
			return "", fmt.Errorf("link source %s for %s not found", src, name)
		}
		if err := os.Symlink(src, filepath.Join(binDir, name)); err != nil {
			return "", fmt.Errorf("link %s: %w", name, err)
		}
	}

	ctx.PrependPath(binDir)
	ctx.Setenv("R_LIBS_USER", os.DevNull)
	ctx.Setenv("R_LIBS_SITE", os.DevNull)
	return workDir, nil
}
