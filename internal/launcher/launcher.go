// SPDX-License-Identifier: AGPL-3.0-or-later

// Package launcher assembles the workflow engine command line and the
// batch-queue submission command used in cluster mode.
package launcher

import (
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

// Engine is the workflow engine executable, resolved via PATH.
const Engine = "snakemake"

// qsubCommand is the queue-manager submission wrapper.
const qsubCommand = "qsub"

// ErrQsubMissing reports that cluster mode was requested but the
// queue-manager executable is not installed.
var ErrQsubMissing = errors.New("cluster submission requested but qsub was not found; " +
	"install the queue manager or disable submit-to-cluster")

// Options captures everything that goes on the engine command line.
type Options struct {
	Snakefile  string
	ConfigFile string
	Jobs       int
	Targets    []string

	ForceAll       bool
	DryRun         bool
	Reason         bool
	Unlock         bool
	Verbose        bool
	PrintShellCmds bool
	// Passthrough arguments are appended verbatim.
	Passthrough []string

	// Cluster submission; empty ClusterConfig means local execution.
	ClusterConfig string
	SubmitCommand string
	Jobscript     string
	LatencyWait   int

	// Nice level for local runs; nil means no nice prefix.
	Nice *int
}

// Args builds the ordered engine invocation, including the program name.
func Args(o Options) []string {
	var argv []string
	if o.ClusterConfig == "" && o.Nice != nil {
		argv = append(argv, "nice", "-n", strconv.Itoa(*o.Nice))
	}
	argv = append(argv, Engine,
		"--snakefile", o.Snakefile,
		"--configfile", o.ConfigFile,
		"--jobs", strconv.Itoa(o.Jobs),
		"--rerun-incomplete",
	)
	if o.ClusterConfig != "" {
		argv = append(argv,
			"--cluster-config", o.ClusterConfig,
			"--cluster", o.SubmitCommand,
			"--jobscript", o.Jobscript,
			"--latency-wait", strconv.Itoa(o.LatencyWait),
		)
	}
	if o.ForceAll {
		argv = append(argv, "--forceall")
	}
	if o.DryRun {
		argv = append(argv, "--dryrun")
	}
	if o.Reason {
		argv = append(argv, "--reason")
	}
	if o.Unlock {
		argv = append(argv, "--unlock")
	}
	if o.Verbose {
		argv = append(argv, "--verbose")
	}
	if o.PrintShellCmds {
		argv = append(argv, "--printshellcmds")
	}
	argv = append(argv, o.Passthrough...)
	argv = append(argv, o.Targets...)
	return argv
}

// SubmitCommand renders the qsub invocation template handed to the engine.
// The {cluster.*} placeholders stay literal; the engine substitutes them
// per job from the cluster configuration. contactEmail adds abort
// notification flags unless empty or the sentinel "none".
func SubmitCommand(withQueue bool, contactEmail string) string {
	parts := []string{
		qsubCommand,
		"-v", "R_LIBS_USER", "-v", "R_LIBS_SITE", "-v", "PATH",
		"-l", "h_stack={cluster.h_stack}",
		"-l", "h_vmem={cluster.MEM}",
		"-pe", "smp", "{cluster.nthreads}",
		"-b", "y",
		"-cwd",
	}
	if withQueue {
		parts = append(parts, "-q", "{cluster.queue}")
	}
	if contactEmail != "" && !strings.EqualFold(contactEmail, "none") {
		parts = append(parts, "-m", "a", "-M", contactEmail)
	}
	return strings.Join(parts, " ")
}

// ProbeQsub checks once that the queue manager is invocable by running its
// help command. A missing executable maps to ErrQsubMissing; any other
// failure to start it is returned unchanged. A nonzero help exit status
// still counts as present.
//
// run invokes a command and waits for it; nil uses os/exec.
func ProbeQsub(run func(name string, args ...string) error) error {
	if run == nil {
		run = func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		}
	}
	err := run(qsubCommand, "-help")
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return ErrQsubMissing
	}
	// Anything else (permissions, exec format, ...) is not a user
	// configuration problem and propagates as-is.
	return err
}
