// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runner executes the workflow engine as a subprocess, either
// directly or piped through the graph-layout tool.
package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/BIMSBbioinfo/pigx-common/internal/runctx"
)

// graphTool renders engine graph output to PDF.
const graphTool = "dot"

// Execute runs argv and returns the engine's exit code unchanged. A nil
// error with a nonzero code means the engine itself failed.
func Execute(argv []string, ctx *runctx.Context) (int, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = ctx.Environ()
	cmd.Dir = ctx.WorkDir

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("run %s: %w", argv[0], err)
}

// Graph runs the engine with graphFlag (--dag or --rulegraph) appended and
// pipes its output through the layout tool into a PDF at output. Both
// subprocesses are awaited before returning.
func Graph(argv []string, graphFlag, output string, ctx *runctx.Context) error {
	engine := exec.Command(argv[0], append(argv[1:], graphFlag)...)
	engine.Stderr = os.Stderr
	engine.Env = ctx.Environ()
	engine.Dir = ctx.WorkDir

	layout := exec.Command(graphTool, "-Tpdf", "-o", output)
	layout.Stderr = os.Stderr
	layout.Env = ctx.Environ()
	layout.Dir = ctx.WorkDir

	pipe, err := engine.StdoutPipe()
	if err != nil {
		return fmt.Errorf("connect graph pipe: %w", err)
	}
	layout.Stdin = pipe

	if err := engine.Start(); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	if err := layout.Start(); err != nil {
		_ = engine.Wait()
		return fmt.Errorf("start %s: %w", graphTool, err)
	}
	engineErr := engine.Wait()
	layoutErr := layout.Wait()
	if engineErr != nil {
		return fmt.Errorf("render graph: %w", engineErr)
	}
	if layoutErr != nil {
		return fmt.Errorf("render graph: %w", layoutErr)
	}
	return nil
}
