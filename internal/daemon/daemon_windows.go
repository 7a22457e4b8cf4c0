//go:build windows

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/phantomos/governor/internal/fileutil"
)

// pidLockFile holds the open PID file to maintain the LockFileEx advisory lock.
// The lock is held for the lifetime of the daemon process.
var pidLockFile *os.File

// WritePID writes the current process ID to the PID file with an exclusive
// lock (LockFileEx). The lock prevents two daemon instances from running
// simultaneously. The returned file handle must remain open to hold the lock;
// call CleanupPID on shutdown.
func WritePID() error {
	path := pidFile()
	f, err := fileutil.OpenOwnerOnly(path, os.O_CREATE|os.O_WRONLY)
	if err != nil {
		return fmt.Errorf("open PID file: %w", err)
	}
	// Lock at a high offset (0x7FFFFFFF) so the lock doesn't overlap with the
	// PID content bytes. This allows other processes to read the PID file via
	// os.ReadFile while the exclusive lock still prevents two daemons.
	ol := &windows.Overlapped{Offset: 0x7FFFFFFF}
	err = windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, // reserved
		1, // lock 1 byte
		0, // high
		ol,
	)
	if err != nil {
		f.Close()
		return fmt.Errorf("another instance is running (LockFileEx %s): %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return fmt.Errorf("truncate PID file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d", os.Getpid()); err != nil {
		f.Close()
		return fmt.Errorf("write PID file: %w", err)
	}
	pidLockFile = f
	return nil
}

// CleanupPID releases the file lock and removes the PID and port files.
func CleanupPID() {
	if pidLockFile != nil {
		pidLockFile.Close()
		pidLockFile = nil
	}
	_ = os.Remove(pidFile())
	_ = os.Remove(portFile())
}

// IsRunning checks if the daemon is running by opening the process handle.
func IsRunning() (bool, int) {
	pid, err := ReadPID()
	if err != nil {
		return false, 0
	}

	// On Windows, OpenProcess succeeds only if the process exists.
	// PROCESS_QUERY_LIMITED_INFORMATION is the least-privilege access right.
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// Process doesn't exist, clean up stale PID file
		_ = RemovePID() //nolint:errcheck // cleanup best effort
		return false, 0
	}
	windows.CloseHandle(h)

	return true, pid
}

// Stop stops the running daemon by terminating the process. Windows has no
// graceful signal equivalent to SIGTERM, so we use TerminateProcess.
func Stop() error {
	running, pid := IsRunning()
	if !running {
		return errors.New("governor is not running")
	}

	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE|windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("failed to open process: %w", err)
	}
	defer windows.CloseHandle(h)

	// Terminate the process (exit code 1)
	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("failed to stop governor: %w", err)
	}

	// Wait for process to exit (with timeout)
	event, err := windows.WaitForSingleObject(h, 3000) // 3 seconds
	if err != nil || event == uint32(0x00000102) {     // WAIT_TIMEOUT
		// Best effort — process may be stuck
	}

	_ = RemovePID() //nolint:errcheck // cleanup best effort
	return nil
}

// Daemonize starts the current program as a background process. On Windows,
// uses CREATE_NEW_PROCESS_GROUP to detach from the console.
func Daemonize(args []string) (int, error) {
	// Open log file for daemon output
	logFile, err := fileutil.OpenOwnerOnly(LogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}

	// Prepare command to re-execute self
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	// args[0] should be "daemon", insert --daemon-mode after it
	daemonArgs := make([]string, 0, len(args)+1)
	if len(args) > 0 {
		daemonArgs = append(daemonArgs, args[0])
		daemonArgs = append(daemonArgs, "--daemon-mode")
		daemonArgs = append(daemonArgs, args[1:]...)
	} else {
		daemonArgs = append(daemonArgs, "--daemon-mode")
	}

	if !filepath.IsAbs(executable) {
		return 0, fmt.Errorf("executable path must be absolute: %s", executable)
	}

	cmd := exec.CommandContext(context.Background(), executable, daemonArgs...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil

	// Restricted environment: only essentials plus the governor's own secrets.
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"USERPROFILE=" + os.Getenv("USERPROFILE"),
		"LOCALAPPDATA=" + os.Getenv("LOCALAPPDATA"),
		"USERNAME=" + os.Getenv("USERNAME"),
		"GOVERNOR_DAEMON=1",
	}
	if dbKey := os.Getenv("GOVERNOR_DB_KEY"); dbKey != "" {
		cmd.Env = append(cmd.Env, "GOVERNOR_DB_KEY="+dbKey)
	}
	if token := os.Getenv("GOVERNOR_API_TOKEN"); token != "" {
		cmd.Env = append(cmd.Env, "GOVERNOR_API_TOKEN="+token)
	}

	// Detach from console: CREATE_NEW_PROCESS_GROUP
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}

	pid := cmd.Process.Pid
	_ = cmd.Process.Release()

	return pid, nil
}
