//go:build windows

package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/windows"
)

// lockPIDRange takes the exclusive byte-range lock WritePID uses: one byte
// at the high offset, so ReadFile on the data region still works.
func lockPIDRange(f *os.File) error {
	ol := &windows.Overlapped{Offset: 0x7FFFFFFF}
	return windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol,
	)
}

func unlockPIDRange(f *os.File) {
	ol := &windows.Overlapped{Offset: 0x7FFFFFFF}
	_ = windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}

func TestPIDLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "governor.pid")

	f1, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f1.Close()
	if err := lockPIDRange(f1); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	fmt.Fprintf(f1, "%d", os.Getpid())

	f2, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	defer f2.Close()
	if err := lockPIDRange(f2); err == nil {
		t.Fatal("second lock should fail while the first is held")
	}

	unlockPIDRange(f1)
	f1.Close()

	f3, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("open third: %v", err)
	}
	defer f3.Close()
	if err := lockPIDRange(f3); err != nil {
		t.Fatalf("lock after release should succeed: %v", err)
	}
}

func TestPIDFileReadableWhileLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "governor.pid")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if err := lockPIDRange(f); err != nil {
		t.Fatalf("lock: %v", err)
	}

	pid := os.Getpid()
	fmt.Fprintf(f, "%d", pid)
	f.Sync()

	// A status check from another process reads the file while the daemon
	// holds the lock.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read while locked: %v", err)
	}
	if got, want := string(data), fmt.Sprintf("%d", pid); got != want {
		t.Errorf("PID content = %q, want %q", got, want)
	}
}
