package runner

import (
	"testing"

	"github.com/BIMSBbioinfo/pigx-common/internal/runctx"
)

func testContext(t *testing.T) *runctx.Context {
	t.Helper()
	return &runctx.Context{
		WorkDir: t.TempDir(),
		Env:     map[string]string{"PATH": "/usr/bin:/bin"},
	}
}

func TestExecutePropagatesExitCode(t *testing.T) {
	ctx := testContext(t)

	code, err := Execute([]string{"sh", "-c", "exit 0"}, ctx)
	if err != nil || code != 0 {
		t.Fatalf("code=%d err=%v", code, err)
	}

	code, err = Execute([]string{"sh", "-c", "exit 3"}, ctx)
	if err != nil {
		t.Fatalf("engine failure must not be an error: %v", err)
	}
	if code != 3 {
		t.Fatalf("code = %d, want 3", code)
	}
}

func TestExecuteMissingBinary(t *testing.T) {
	ctx := testContext(t)
	if _, err := Execute([]string{"definitely-not-a-binary-xyz"}, ctx); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
