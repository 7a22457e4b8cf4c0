//go:build !windows

package fileutil

import "testing"

// DACL assertions only exist on Windows; on Unix the shared assertOwnerOnly
// checks mode bits directly.

func assertOwnerOnlyWindows(t *testing.T, _ string) {
	t.Helper()
}

func assertHasInheritedACEs(t *testing.T, _ string) {
	t.Helper()
}
