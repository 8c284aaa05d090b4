package config

import (
	"os"
	"testing"
)

// chdirForTest changes the working directory to dir for the duration of
// the test and restores it on cleanup (equivalent of testing.T.Chdir,
// which is unavailable on the Go 1.21 toolchain).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory %s: %v", old, err)
		}
	})
}
