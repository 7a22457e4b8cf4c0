//go:build unix

package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestWritePIDExclusiveLock(t *testing.T) {
	// Test the flock logic directly in a temp dir so we don't interfere with
	// a real daemon's PID file.
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.pid")

	f1, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f1.Close()

	if err := unix.Flock(int(f1.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		t.Fatalf("first flock: %v", err)
	}

	// Second attempt should fail (EWOULDBLOCK)
	f2, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	defer f2.Close()

	err = unix.Flock(int(f2.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		t.Fatal("second flock should fail when first holds lock")
	}

	// Release first lock
	unix.Flock(int(f1.Fd()), unix.LOCK_UN)

	// Now second should succeed
	if err := unix.Flock(int(f2.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		t.Fatalf("flock after release should succeed: %v", err)
	}
}

func TestPortFileRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := ReadPort(); err == nil {
		t.Fatal("ReadPort should fail before WritePort")
	}

	if err := WritePort(9474); err != nil {
		t.Fatalf("WritePort: %v", err)
	}
	port, err := ReadPort()
	if err != nil {
		t.Fatalf("ReadPort: %v", err)
	}
	if port != 9474 {
		t.Errorf("port = %d, want 9474", port)
	}
}

func TestReadPIDValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid pid", "4321", false},
		{"not a number", "abc", true},
		{"zero", "0", true},
		{"negative", "-5", true},
		{"over max", "99999999", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(pidFile(), []byte(tt.content), 0600); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := ReadPID()
			if (err != nil) != tt.wantErr {
				t.Errorf("ReadPID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
