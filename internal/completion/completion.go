// Package completion provides CLI tab-completion for the governor.
//
// The binary itself handles completions: when invoked with COMP_LINE set
// (by the shell), it outputs matching completions and exits.
// Works across bash, zsh, and fish with a one-time install.
package completion

import (
	"os"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/install"
	"github.com/posener/complete/v2/predict"
)

// command defines the full governor CLI completion tree.
var command = &complete.Command{
	Sub: map[string]*complete.Command{
		"start": {
			Flags: map[string]complete.Predictor{
				"config":         predict.Files("*.yaml"),
				"log-level":      predict.Set{"trace", "debug", "info", "warn", "error"},
				"no-color":       predict.Nothing,
				"port":           predict.Nothing,
				"strict":         predict.Nothing,
				"audit-all":      predict.Nothing,
				"verbose":        predict.Nothing,
				"interactive":    predict.Nothing,
				"no-cache":       predict.Nothing,
				"foreground":     predict.Nothing,
				"telemetry":      predict.Nothing,
				"retention-days": predict.Nothing,
				"patterns-dir":   predict.Dirs("*"),
			},
		},
		"stop":     {},
		"status":   {},
		"logs":     {Flags: map[string]complete.Predictor{"f": predict.Nothing, "n": predict.Nothing}},
		"evaluate": {Flags: map[string]complete.Predictor{"name": predict.Nothing, "caps": predict.Nothing, "pid": predict.Nothing}, Args: predict.Files("*")},
		"check": {Flags: map[string]complete.Predictor{
			"policy": predict.Set{
				"MEM_FREE", "MEM_OVERWRITE", "PROC_KILL", "PROC_EXIT",
				"FS_DELETE", "FS_TRUNCATE", "FS_OVERWRITE", "FS_HIDE",
				"FS_PERM_DENIED", "FS_QUOTA_EXCEEDED", "RES_EXHAUST",
			},
			"path": predict.Files("*"),
			"caps": predict.Nothing,
			"pid":  predict.Nothing,
			"size": predict.Nothing,
		}},
		"stats":    {},
		"overview": {},
		"history":  {Flags: map[string]complete.Predictor{"limit": predict.Nothing}},
		"audit":    {Flags: map[string]complete.Predictor{"limit": predict.Nothing}},
		"rollback": {Args: predict.Something},
		"verify":   {Flags: map[string]complete.Predictor{"fingerprint": predict.Nothing, "signature": predict.Nothing}},
		"scope": {Sub: map[string]*complete.Command{
			"list":   {},
			"add":    {Flags: map[string]complete.Predictor{"id": predict.Nothing, "caps": predict.Nothing, "glob": predict.Nothing, "max-bytes": predict.Nothing, "ttl": predict.Nothing}},
			"remove": {Args: predict.Something},
			"check":  {Flags: map[string]complete.Predictor{"cap": predict.Nothing, "path": predict.Files("*"), "size": predict.Nothing}},
		}},
		"cache":      {Sub: map[string]*complete.Command{"stats": {}, "clear": {}}},
		"flags":      {Args: predict.Set{"strict", "audit-all", "verbose", "interactive", "cache", "none"}},
		"export":     {Flags: map[string]complete.Predictor{"dir": predict.Dirs("*"), "minutes": predict.Nothing}},
		"version":    {},
		"help":       {},
		"completion": {Flags: map[string]complete.Predictor{"install": predict.Nothing, "uninstall": predict.Nothing}},
	},
}

// Run checks if the binary was invoked for shell completion.
// If COMP_LINE is set, it outputs completions and exits (never returns).
// Otherwise it returns false and the program continues normally.
func Run() bool {
	if os.Getenv("COMP_LINE") != "" || os.Getenv("COMP_INSTALL") != "" || os.Getenv("COMP_UNINSTALL") != "" {
		command.Complete("governor")
		return true
	}
	return false
}

// Install sets up shell completion for the detected shells.
// Returns nil on success. The caller handles user-facing output.
func Install() error {
	return install.Install("governor")
}

// Uninstall removes shell completion for the detected shells.
// Returns nil on success. The caller handles user-facing output.
func Uninstall() error {
	return install.Uninstall("governor")
}

// IsInstalled reports whether shell completion is already set up.
func IsInstalled() bool {
	return install.IsInstalled("governor")
}
