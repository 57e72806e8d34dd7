package utils

import "testing"

func TestMutexScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if mutexAcquireScript == nil || mutexReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}
