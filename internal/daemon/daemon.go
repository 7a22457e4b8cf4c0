// Package daemon manages the governor's background process: PID file with an
// advisory lock, daemonization by re-exec, and liveness checks for the
// status and stop subcommands.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/phantomos/governor/internal/fileutil"
)

const (
	pidFileName  = "governor.pid"
	portFileName = "governor.port"
	logFileName  = "governor.log"
)

// DataDir returns the governor data directory and creates it if needed
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/tmp" // Fallback if home dir unavailable
	}
	dir := filepath.Join(home, ".phantomos")
	_ = fileutil.MkdirOwnerOnly(dir) //nolint:errcheck // best effort - dir may exist
	return dir
}

// pidFile returns the path to the PID file
func pidFile() string {
	return filepath.Join(DataDir(), pidFileName)
}

// LogFile returns the path to the log file
func LogFile() string {
	return filepath.Join(DataDir(), logFileName)
}

// LogFileDisplay returns a display-friendly log path using ~ for the home directory.
func LogFileDisplay() string {
	p := LogFile()
	if home, err := os.UserHomeDir(); err == nil {
		if rel, err := filepath.Rel(home, p); err == nil && !filepath.IsAbs(rel) {
			return "~/" + rel
		}
	}
	return p
}

// portFile returns the path to the port file.
func portFile() string {
	return filepath.Join(DataDir(), portFileName)
}

// WritePort writes the API port number to the port file.
func WritePort(port int) error {
	return fileutil.WriteOwnerOnly(portFile(), []byte(strconv.Itoa(port)))
}

// ReadPort reads the API port recorded by the running daemon.
func ReadPort() (int, error) {
	data, err := os.ReadFile(portFile())
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(string(data))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port file content: %q", data)
	}
	return port, nil
}

// ReadPID reads the PID from the PID file
func ReadPID() (int, error) {
	data, err := os.ReadFile(pidFile())
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}

	// Linux max PID is typically 4194304 (2^22), but 32768 is default
	if pid < 1 || pid > 4194304 {
		return 0, fmt.Errorf("invalid PID value: %d", pid)
	}

	return pid, nil
}

// RemovePID removes the PID file
func RemovePID() error {
	return os.Remove(pidFile())
}

// IsDaemonMode checks if we're running in daemon mode
func IsDaemonMode() bool {
	return os.Getenv("GOVERNOR_DAEMON") == "1"
}
