// SPDX-License-Identifier: AGPL-3.0-or-later

// Package paths centralises pigx installation-path resolution.
package paths

import (
	"path/filepath"

	"github.com/BIMSBbioinfo/pigx-common/internal/runctx"
)

const (
	// EnvUninstalled switches every installation path to a source checkout.
	EnvUninstalled = "PIGX_UNINSTALLED"
	// EnvSourceDir overrides where the source checkout lives in
	// uninstalled mode. Defaults to the working directory.
	EnvSourceDir = "PIGX_SOURCE_DIR"
	// EnvPipeline selects the active pipeline flavour.
	EnvPipeline = "PIGX_PIPELINE"
	// EnvUgly suppresses the startup banner.
	EnvUgly = "PIGX_UGLY"

	defaultPipeline = "pigx"

	installedLibRoot  = "/usr/lib/pigx"
	installedDataRoot = "/usr/share/pigx"
)

// Layout resolves the files the launcher needs from an installed tree or,
// in uninstalled mode, from a source checkout.
type Layout struct {
	Pipeline string
	// LibDir holds the engine ruleset (the snakefile).
	LibDir string
	// DataDir holds the default settings document and the jobscript.
	DataDir string
	// Pandoc and PandocCiteproc are the tool binaries pinned into the
	// isolated bin directory of the workspace.
	Pandoc         string
	PandocCiteproc string
}

// Detect computes the layout from the run context. Precedence for the
// source directory in uninstalled mode: PIGX_SOURCE_DIR, then the working
// directory.
func Detect(ctx *runctx.Context) Layout {
	pipeline := ctx.Getenv(EnvPipeline)
	if pipeline == "" {
		pipeline = defaultPipeline
	}

	l := Layout{Pipeline: pipeline}
	if ctx.Getenv(EnvUninstalled) != "" {
		src := ctx.Getenv(EnvSourceDir)
		if src == "" {
			src = ctx.WorkDir
		}
		l.LibDir = src
		l.DataDir = filepath.Join(src, "etc")
	} else {
		l.LibDir = filepath.Join(installedLibRoot, pipeline)
		l.DataDir = filepath.Join(installedDataRoot, pipeline)
	}

	l.Pandoc = toolPath(ctx, "PIGX_PANDOC", "/usr/bin/pandoc")
	l.PandocCiteproc = toolPath(ctx, "PIGX_PANDOC_CITEPROC", "/usr/bin/pandoc-citeproc")
	return l
}

func toolPath(ctx *runctx.Context, env, fallback string) string {
	if v := ctx.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// Snakefile returns the engine ruleset path.
func (l Layout) Snakefile() string {
	return filepath.Join(l.LibDir, "Snakefile")
}

// DefaultSettings returns the pipeline's default settings document.
func (l Layout) DefaultSettings() string {
	return filepath.Join(l.DataDir, "settings.yaml")
}

// Jobscript returns the cluster jobscript handed to the engine.
func (l Layout) Jobscript() string {
	return filepath.Join(l.DataDir, "jobscript.sh")
}

// SourceDir returns the base directory against which relative location
// values are resolved: the source checkout in uninstalled mode, otherwise
// the working directory.
func SourceDir(ctx *runctx.Context) string {
	if ctx.Getenv(EnvUninstalled) != "" {
		if src := ctx.Getenv(EnvSourceDir); src != "" {
			return src
		}
	}
	return ctx.WorkDir
}
