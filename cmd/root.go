// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BIMSBbioinfo/pigx-common/internal/banner"
	"github.com/BIMSBbioinfo/pigx-common/internal/cluster"
	"github.com/BIMSBbioinfo/pigx-common/internal/journal"
	"github.com/BIMSBbioinfo/pigx-common/internal/launcher"
	"github.com/BIMSBbioinfo/pigx-common/internal/locations"
	"github.com/BIMSBbioinfo/pigx-common/internal/paths"
	"github.com/BIMSBbioinfo/pigx-common/internal/runconfig"
	"github.com/BIMSBbioinfo/pigx-common/internal/runctx"
	"github.com/BIMSBbioinfo/pigx-common/internal/runner"
	"github.com/BIMSBbioinfo/pigx-common/internal/settings"
	"github.com/BIMSBbioinfo/pigx-common/internal/workspace"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var opts struct {
	initMode     string
	settingsFile string
	configFile   string
	reuseConfig  bool
	noNormalize  bool
	targets      []string
	dryRun       bool
	graph        string
	rulegraph    string
	force        bool
	reason       bool
	unlock       bool
	verbose      bool
	printShell   bool
	snakemake    []string
	history      bool
}

var rootCmd = &cobra.Command{
	Use:           "pigx [sample_sheet]",
	Short:         "Prepare and launch a pipeline run",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLaunch,
}

func init() {
	f := rootCmd.Flags()
	// Earlier launcher generations spelled some flags with underscores;
	// keep those invocations working.
	f.SetNormalizeFunc(func(fs *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	f.StringVar(&opts.initMode, "init", "", "Create template files (settings|sample-sheet|both)")
	f.StringVarP(&opts.settingsFile, "settings", "s", "", "User settings file merged over the pipeline defaults")
	f.StringVar(&opts.configFile, "configfile", "./config.json", "Where to write the run configuration")
	f.BoolVar(&opts.reuseConfig, "reuse-configfile", false, "Reuse an existing run configuration instead of regenerating it")
	f.BoolVar(&opts.noNormalize, "do-not-normalize-locations", false, "Keep location values exactly as configured")
	f.StringArrayVar(&opts.targets, "target", nil, "Stop when the named target rule is done (repeatable)")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Show what would be done without executing")
	f.StringVar(&opts.graph, "graph", "", "Write the dependency graph to the given PDF file and exit")
	f.StringVar(&opts.rulegraph, "rulegraph", "", "Write the rule graph to the given PDF file and exit")
	f.BoolVar(&opts.force, "force", false, "Force the engine to rerun every rule")
	f.BoolVar(&opts.reason, "reason", false, "Print the engine's reason for running each rule")
	f.BoolVar(&opts.unlock, "unlock", false, "Recover after a crashed run left the output directory locked")
	f.BoolVar(&opts.verbose, "verbose", false, "Verbose engine output")
	f.BoolVar(&opts.printShell, "printshellcmds", false, "Print the shell command of each executed rule")
	f.StringArrayVar(&opts.snakemake, "snakemake", nil, "Additional argument passed to the engine verbatim (repeatable)")
	f.BoolVar(&opts.history, "history", false, "Show recent launches for this output directory and exit")
}

// engineExit carries the engine's exit status through cobra unchanged.
type engineExit struct {
	code int
}

func (e *engineExit) Error() string {
	return fmt.Sprintf("engine exited with status %d", e.code)
}

// Execute runs the launcher. Detected configuration problems exit 1; a
// failed engine run exits with the engine's own status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *engineExit
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx, err := runctx.System()
	if err != nil {
		return err
	}
	layout := paths.Detect(ctx)

	if opts.initMode != "" {
		if opts.settingsFile != "" {
			return errors.New("--init and --settings are mutually exclusive")
		}
		return runInit(opts.initMode, layout)
	}

	sampleSheet := "sample_sheet.csv"
	if len(args) == 1 {
		sampleSheet = args[0]
	}

	// History is a read-only query; answer it before anything below
	// writes a configuration or touches the workspace.
	if opts.history {
		return printHistory(layout, sampleSheet, ctx)
	}

	banner.Print(os.Stdout, layout.Pipeline, ctx.Getenv(paths.EnvUgly) != "")

	cfg, err := buildConfig(layout, sampleSheet, ctx)
	if err != nil {
		return err
	}
	execution := cfg.Section("execution")
	outputDir := cfg.String("locations", "output-dir")
	if outputDir == "" {
		return errors.New("locations.output-dir is not configured")
	}

	configAbs, err := filepath.Abs(opts.configFile)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	lopts := launcher.Options{
		Snakefile:      layout.Snakefile(),
		ConfigFile:     configAbs,
		Jobs:           execution.Int(1, "jobs"),
		Targets:        opts.targets,
		ForceAll:       opts.force,
		DryRun:         opts.dryRun,
		Reason:         opts.reason,
		Unlock:         opts.unlock,
		Verbose:        opts.verbose,
		PrintShellCmds: opts.printShell,
		Passthrough:    opts.snakemake,
	}
	if _, ok := execution["nice"]; ok {
		nice := execution.Int(19, "nice")
		lopts.Nice = &nice
	}

	if execution.Bool(false, "submit-to-cluster") {
		sel, err := cluster.WriteConfig(execution, cluster.ConfigFile)
		if err != nil {
			return err
		}
		if err := launcher.ProbeQsub(nil); err != nil {
			return err
		}
		clusterAbs, err := filepath.Abs(cluster.ConfigFile)
		if err != nil {
			return fmt.Errorf("resolve cluster config path: %w", err)
		}
		lopts.ClusterConfig = clusterAbs
		lopts.SubmitCommand = launcher.SubmitCommand(sel.Policy != cluster.NoQueue,
			execution.String("cluster", "contact-email"))
		lopts.Jobscript = layout.Jobscript()
		lopts.LatencyWait = execution.Int(120, "cluster", "missing-file-timeout")
	}

	workDir, err := workspace.Prepare(outputDir, layout, ctx)
	if err != nil {
		return err
	}

	argv := launcher.Args(lopts)

	if opts.graph != "" || opts.rulegraph != "" {
		if opts.graph != "" && opts.rulegraph != "" {
			return errors.New("--graph and --rulegraph are mutually exclusive")
		}
		flag, output := "--dag", opts.graph
		if opts.rulegraph != "" {
			flag, output = "--rulegraph", opts.rulegraph
		}
		return runner.Graph(argv, flag, output, ctx)
	}

	started := time.Now()
	code, runErr := runner.Execute(argv, ctx)
	recordRun(workDir, layout.Pipeline, sampleSheet, argv, code, started, ctx)
	if runErr != nil {
		return runErr
	}
	if code != 0 {
		return &engineExit{code: code}
	}
	return nil
}

// buildConfig produces (or reuses) the run configuration file and returns
// the configuration tree.
func buildConfig(layout paths.Layout, sampleSheet string, ctx *runctx.Context) (settings.Document, error) {
	if opts.reuseConfig {
		if _, err := os.Stat(opts.configFile); err == nil {
			doc, err := runconfig.ReadFile(opts.configFile)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(os.Stderr, "reusing configuration %s\n", opts.configFile)
			return doc, nil
		}
	}

	doc, err := settings.Load(layout.DefaultSettings(), opts.settingsFile)
	if err != nil {
		return nil, err
	}
	if err := locations.Resolve(doc, sampleSheet, paths.SourceDir(ctx), opts.noNormalize, ctx); err != nil {
		return nil, err
	}
	if err := runconfig.WriteFile(opts.configFile, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// recordRun appends the launch to the workspace journal. Journal failures
// never fail the run.
func recordRun(workDir, pipeline, sampleSheet string, argv []string, code int, started time.Time, ctx *runctx.Context) {
	dbCtx := context.Background()
	db, err := journal.Open(dbCtx, workDir)
	if err != nil {
		ctx.Errorf("warning: run journal unavailable: %v", err)
		return
	}
	defer db.Close()
	err = db.Append(dbCtx, journal.Record{
		Pipeline:    pipeline,
		SampleSheet: sampleSheet,
		Argv:        argv,
		ExitCode:    code,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	})
	if err != nil {
		ctx.Errorf("warning: recording run failed: %v", err)
	}
}

// printHistory locates the workspace journal from the merged settings
// alone and prints the recent launches for that output directory. It
// writes nothing: no run configuration, no workspace, and no journal
// database where none exists yet.
func printHistory(layout paths.Layout, sampleSheet string, ctx *runctx.Context) error {
	doc, err := settings.Load(layout.DefaultSettings(), opts.settingsFile)
	if err != nil {
		return err
	}
	outputDir := doc.String("locations", "output-dir")
	if outputDir == "" {
		return errors.New("locations.output-dir is not configured")
	}
	workDir := filepath.Join(
		locations.Resolved(outputDir, sampleSheet, paths.SourceDir(ctx), ctx),
		workspace.WorkDirName)
	if _, err := os.Stat(journal.Path(workDir)); err != nil {
		fmt.Println("no recorded launches")
		return nil
	}

	dbCtx := context.Background()
	db, err := journal.Open(dbCtx, workDir)
	if err != nil {
		return err
	}
	defer db.Close()
	records, err := db.Recent(dbCtx, 20)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no recorded launches")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-10s  exit %d  %s\n",
			rec.StartedAt.Format(time.RFC3339), rec.Pipeline, rec.ExitCode, rec.SampleSheet)
	}
	return nil
}
