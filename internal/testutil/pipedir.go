package testutil

import (
	"os"
	"testing"
)

// PipeDir creates a short-named directory in /tmp for FIFOs and removes
// it when the test completes. Paths built inside it stay well below the
// protocol's path limit.
func PipeDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "ems")
	if err != nil {
		t.Fatalf("creating pipe directory: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}
