package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestWriteOwnerOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "governor.port")

	if err := WriteOwnerOnly(path, []byte("9474")); err != nil {
		t.Fatalf("WriteOwnerOnly: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "9474" {
		t.Fatalf("got %q, want %q", data, "9474")
	}

	assertOwnerOnly(t, path)
}

func TestWriteOwnerOnlyOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "governor.port")

	if err := WriteOwnerOnly(path, []byte("9474")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteOwnerOnly(path, []byte("9475")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "9475" {
		t.Fatalf("got %q, want %q", data, "9475")
	}

	assertOwnerOnly(t, path)
}

func TestWriteOwnerOnlyEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")

	if err := WriteOwnerOnly(path, nil); err != nil {
		t.Fatalf("WriteOwnerOnly: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty file, got size %d", info.Size())
	}

	assertOwnerOnly(t, path)
}

func TestMkdirOwnerOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".phantomos", "patterns.d")

	if err := MkdirOwnerOnly(path); err != nil {
		t.Fatalf("MkdirOwnerOnly: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}

	// Creating again must not error.
	if err := MkdirOwnerOnly(path); err != nil {
		t.Fatalf("second MkdirOwnerOnly: %v", err)
	}

	assertOwnerOnly(t, path)
}

func TestOpenOwnerOnlyAppend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "governor.log")

	for _, line := range []string{"line1\n", "line2\n"} {
		f, err := OpenOwnerOnly(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
		if err != nil {
			t.Fatalf("OpenOwnerOnly: %v", err)
		}
		if _, err := f.WriteString(line); err != nil {
			t.Fatalf("Write: %v", err)
		}
		f.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "line1\nline2\n" {
		t.Fatalf("got %q, want %q", data, "line1\nline2\n")
	}

	assertOwnerOnly(t, path)
}

// TestPlainWriteFileInheritsACL documents why this package exists: on
// Windows, os.WriteFile with 0600 leaves the parent directory's inherited
// DACL in place, so other local principals can still read the file.
func TestPlainWriteFileInheritsACL(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("Windows-only test")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "plain.txt")

	if err := os.WriteFile(path, []byte("not actually private"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	assertHasInheritedACEs(t, path)
}

// assertOwnerOnly checks group/other bits on Unix and defers to the DACL
// check on Windows.
func assertOwnerOnly(t *testing.T, path string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		assertOwnerOnlyWindows(t, path)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat %s: %v", path, err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		t.Errorf("%s has group/other permissions: %04o", path, mode)
	}
}
