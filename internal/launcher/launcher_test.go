package launcher

import (
	"errors"
	"os"
	"os/exec"
	"reflect"
	"strings"
	"testing"
)

func TestArgsLocal(t *testing.T) {
	argv := Args(Options{
		Snakefile:  "/usr/lib/pigx/rnaseq/Snakefile",
		ConfigFile: "/work/config.json",
		Jobs:       4,
	})
	want := []string{
		"snakemake",
		"--snakefile", "/usr/lib/pigx/rnaseq/Snakefile",
		"--configfile", "/work/config.json",
		"--jobs", "4",
		"--rerun-incomplete",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
}

func TestArgsNicePrefixOnlyLocal(t *testing.T) {
	nice := 19
	argv := Args(Options{Snakefile: "S", ConfigFile: "C", Jobs: 1, Nice: &nice})
	if argv[0] != "nice" || argv[1] != "-n" || argv[2] != "19" {
		t.Fatalf("expected nice prefix, got %v", argv[:3])
	}

	argv = Args(Options{
		Snakefile: "S", ConfigFile: "C", Jobs: 1, Nice: &nice,
		ClusterConfig: "/work/cluster_conf.json", SubmitCommand: "qsub", Jobscript: "j", LatencyWait: 120,
	})
	if argv[0] != Engine {
		t.Fatalf("cluster mode must not be niced, got %v", argv[0])
	}
}

func TestArgsClusterAndFlags(t *testing.T) {
	argv := Args(Options{
		Snakefile:      "S",
		ConfigFile:     "C",
		Jobs:           2,
		Targets:        []string{"final_report"},
		ForceAll:       true,
		DryRun:         true,
		Reason:         true,
		Unlock:         true,
		Verbose:        true,
		PrintShellCmds: true,
		Passthrough:    []string{"--notemp"},
		ClusterConfig:  "/work/cluster_conf.json",
		SubmitCommand:  "qsub -b y",
		Jobscript:      "/usr/share/pigx/rnaseq/jobscript.sh",
		LatencyWait:    120,
	})
	joined := strings.Join(argv, " ")
	for _, want := range []string{
		"--cluster-config /work/cluster_conf.json",
		"--cluster qsub -b y",
		"--jobscript /usr/share/pigx/rnaseq/jobscript.sh",
		"--latency-wait 120",
		"--forceall", "--dryrun", "--reason", "--unlock", "--verbose", "--printshellcmds",
		"--notemp",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("argv missing %q: %v", want, argv)
		}
	}
	if argv[len(argv)-1] != "final_report" {
		t.Fatalf("targets must come last, got %v", argv[len(argv)-1])
	}
}

func TestSubmitCommandPlaceholders(t *testing.T) {
	cmd := SubmitCommand(true, "")
	for _, want := range []string{
		"{cluster.h_stack}", "{cluster.MEM}", "{cluster.nthreads}", "-q {cluster.queue}",
	} {
		if !strings.Contains(cmd, want) {
			t.Errorf("submit command missing %q: %s", want, cmd)
		}
	}

	cmd = SubmitCommand(false, "")
	if strings.Contains(cmd, "{cluster.queue}") {
		t.Fatalf("queue placeholder present without a queue policy: %s", cmd)
	}
}

func TestProbeQsub(t *testing.T) {
	exitErr := exec.Command("sh", "-c", "exit 1").Run()
	if _, ok := exitErr.(*exec.ExitError); !ok {
		t.Fatalf("expected *exec.ExitError, got %T", exitErr)
	}

	cases := []struct {
		name   string
		runErr error
		want   error
	}{
		{"help succeeds", nil, nil},
		{"nonzero help status still counts as present", exitErr, nil},
		{"missing executable", &exec.Error{Name: "qsub", Err: exec.ErrNotFound}, ErrQsubMissing},
		{"other start failure passes through", os.ErrPermission, os.ErrPermission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotName string
			var gotArgs []string
			err := ProbeQsub(func(name string, args ...string) error {
				gotName, gotArgs = name, args
				return tc.runErr
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("ProbeQsub = %v, want %v", err, tc.want)
			}
			if gotName != qsubCommand || !reflect.DeepEqual(gotArgs, []string{"-help"}) {
				t.Fatalf("probed %s %v", gotName, gotArgs)
			}
		})
	}
}

func TestSubmitCommandContactEmail(t *testing.T) {
	if cmd := SubmitCommand(false, "ops@example.org"); !strings.Contains(cmd, "-m a -M ops@example.org") {
		t.Fatalf("missing notification flags: %s", cmd)
	}
	for _, sentinel := range []string{"", "none", "None", "NONE"} {
		if cmd := SubmitCommand(false, sentinel); strings.Contains(cmd, "-M") {
			t.Fatalf("notification flags present for %q: %s", sentinel, cmd)
		}
	}
}
