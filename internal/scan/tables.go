package scan

import "github.com/phantomos/governor/internal/types"

// DestructivePattern is a lexeme whose presence anywhere in a submission is
// considered destructive. Matching is case-insensitive substring; a hit is
// always Critical.
type DestructivePattern struct {
	Lexeme      string `yaml:"lexeme"`
	Description string `yaml:"description"`
	// RegexHint marks lexemes that look like fragments of a larger
	// construct (e.g. "rm -") rather than complete identifiers. It is
	// informational; matching is substring either way.
	RegexHint bool `yaml:"regex_hint,omitempty"`
}

// CapabilityPattern maps a lexeme to the capability bits its presence
// implies. Matching is additive: over-approximation is safe.
type CapabilityPattern struct {
	Lexeme string
	Caps   types.CapabilityMask
}

// builtinDestructive is the fixed destructive-pattern table. Order matters
// only for which description wins when several lexemes hit; the first match
// is reported.
var builtinDestructive = []DestructivePattern{
	{Lexeme: "unlink", Description: "file unlink destroys data"},
	{Lexeme: "remove", Description: "remove call destroys data"},
	{Lexeme: "rmdir", Description: "directory removal destroys data"},
	{Lexeme: "ftruncate", Description: "ftruncate discards file content"},
	{Lexeme: "truncate", Description: "truncate discards file content"},
	{Lexeme: "bzero", Description: "bzero erases memory content"},
	{Lexeme: "shred", Description: "shred irrecoverably erases data"},
	{Lexeme: "kill(", Description: "kill() forcibly terminates a process"},
	{Lexeme: "killpg", Description: "killpg terminates a process group"},
	{Lexeme: "abort", Description: "abort terminates the calling process"},
	{Lexeme: "exit(", Description: "exit() terminates without preservation"},
	{Lexeme: "_exit", Description: "_exit terminates without cleanup"},
	{Lexeme: "reboot", Description: "reboot discards running state"},
	{Lexeme: "shutdown", Description: "shutdown discards running state"},
	{Lexeme: "halt", Description: "halt discards running state"},
	{Lexeme: "poweroff", Description: "poweroff discards running state"},
	{Lexeme: "format", Description: "format erases a volume"},
	{Lexeme: "mkfs", Description: "mkfs erases a volume"},
	{Lexeme: "dd if=", Description: "raw dd write can overwrite a device", RegexHint: true},
	{Lexeme: "DROP TABLE", Description: "SQL DROP TABLE destroys records"},
	{Lexeme: "DROP DATABASE", Description: "SQL DROP DATABASE destroys records"},
	{Lexeme: "TRUNCATE TABLE", Description: "SQL TRUNCATE TABLE destroys records"},
	{Lexeme: "DELETE FROM", Description: "SQL DELETE FROM destroys records"},
	{Lexeme: "rm -", Description: "rm with flags deletes files", RegexHint: true},
	{Lexeme: `rm "`, Description: "rm deletes files", RegexHint: true},
	{Lexeme: "rm '", Description: "rm deletes files", RegexHint: true},
	{Lexeme: "> /dev/", Description: "redirect into a device node overwrites it", RegexHint: true},
	{Lexeme: ">/dev/", Description: "redirect into a device node overwrites it", RegexHint: true},
}

// builtinCapability is the fixed capability-inference table. Every match
// OR-merges its bits into the inferred mask.
var builtinCapability = []CapabilityPattern{
	// File I/O
	{Lexeme: "fopen", Caps: types.CapReadFiles},
	{Lexeme: "open(", Caps: types.CapReadFiles},
	{Lexeme: "read(", Caps: types.CapReadFiles},
	{Lexeme: "fread", Caps: types.CapReadFiles},
	{Lexeme: "write(", Caps: types.CapWriteFiles},
	{Lexeme: "fwrite", Caps: types.CapWriteFiles},
	{Lexeme: "fprintf", Caps: types.CapWriteFiles},
	{Lexeme: "creat(", Caps: types.CapCreateFiles},
	{Lexeme: "mkdir", Caps: types.CapCreateFiles},
	{Lexeme: "mkstemp", Caps: types.CapCreateFiles},
	{Lexeme: "O_CREAT", Caps: types.CapCreateFiles},
	{Lexeme: "hide(", Caps: types.CapHideFiles},
	{Lexeme: "phantom_hide", Caps: types.CapHideFiles},

	// Process
	{Lexeme: "fork", Caps: types.CapCreateProcess},
	{Lexeme: "vfork", Caps: types.CapCreateProcess},
	{Lexeme: "execve", Caps: types.CapCreateProcess},
	{Lexeme: "execl", Caps: types.CapCreateProcess},
	{Lexeme: "posix_spawn", Caps: types.CapCreateProcess},
	{Lexeme: "system(", Caps: types.CapCreateProcess},
	{Lexeme: "popen", Caps: types.CapCreateProcess},
	{Lexeme: "CreateProcess", Caps: types.CapCreateProcess},

	// IPC
	{Lexeme: "msgsnd", Caps: types.CapIpcSend},
	{Lexeme: "mq_send", Caps: types.CapIpcSend},
	{Lexeme: "sendto", Caps: types.CapIpcSend | types.CapNetwork},
	{Lexeme: "sendmsg", Caps: types.CapIpcSend},
	{Lexeme: "msgrcv", Caps: types.CapIpcReceive},
	{Lexeme: "mq_receive", Caps: types.CapIpcReceive},
	{Lexeme: "recvfrom", Caps: types.CapIpcReceive | types.CapNetwork},
	{Lexeme: "pipe(", Caps: types.CapIpcSend | types.CapIpcReceive},
	{Lexeme: "shmget", Caps: types.CapIpcSend | types.CapIpcReceive},

	// Memory
	{Lexeme: "malloc", Caps: types.CapAllocMemory},
	{Lexeme: "calloc", Caps: types.CapAllocMemory},
	{Lexeme: "realloc", Caps: types.CapAllocMemory},
	{Lexeme: "mmap", Caps: types.CapAllocMemory},
	{Lexeme: "brk(", Caps: types.CapAllocMemory},
	{Lexeme: "mlock", Caps: types.CapHighMemory},
	{Lexeme: "hugepage", Caps: types.CapHighMemory},
	{Lexeme: "MAP_HUGETLB", Caps: types.CapHighMemory},

	// Scheduling
	{Lexeme: "setpriority", Caps: types.CapHighPriority},
	{Lexeme: "sched_setscheduler", Caps: types.CapHighPriority},
	{Lexeme: "nice(", Caps: types.CapHighPriority},
	{Lexeme: "SCHED_FIFO", Caps: types.CapHighPriority},
	{Lexeme: "SCHED_RR", Caps: types.CapHighPriority},

	// Network
	{Lexeme: "socket(", Caps: types.CapNetwork},
	{Lexeme: "bind(", Caps: types.CapNetwork},
	{Lexeme: "connect(", Caps: types.CapNetwork},
	{Lexeme: "listen(", Caps: types.CapNetwork},
	{Lexeme: "accept(", Caps: types.CapNetwork},
	{Lexeme: "curl", Caps: types.CapNetwork},
	{Lexeme: "wget", Caps: types.CapNetwork},
	{Lexeme: "https://", Caps: types.CapNetwork | types.CapNetworkSecure},
	{Lexeme: "tls", Caps: types.CapNetworkSecure},
	{Lexeme: "ssl", Caps: types.CapNetworkSecure},
	{Lexeme: "http://", Caps: types.CapNetwork | types.CapNetworkInsecure},
	{Lexeme: "telnet", Caps: types.CapNetwork | types.CapNetworkInsecure},

	// System configuration
	{Lexeme: "sysctl", Caps: types.CapSystemConfig},
	{Lexeme: "setenv", Caps: types.CapSystemConfig},
	{Lexeme: "sethostname", Caps: types.CapSystemConfig},
	{Lexeme: "settimeofday", Caps: types.CapSystemConfig},
	{Lexeme: "/etc/", Caps: types.CapSystemConfig},

	// Raw devices, procfs, devfs
	{Lexeme: "ioctl", Caps: types.CapRawDevice},
	{Lexeme: "/dev/mem", Caps: types.CapRawDevice},
	{Lexeme: "/dev/port", Caps: types.CapRawDevice},
	{Lexeme: "/dev/", Caps: types.CapReadDevFs},
	{Lexeme: "/proc/", Caps: types.CapReadProcFs},

	// Governor interference
	{Lexeme: "governor_bypass", Caps: types.CapGovernorBypass},
	{Lexeme: "GOVERNOR_BYPASS", Caps: types.CapGovernorBypass},
	{Lexeme: "disable_governor", Caps: types.CapGovernorBypass},
}

// Tables holds the active pattern tables: the builtin set plus any
// user-supplied additions loaded from the pattern directory.
type Tables struct {
	Destructive []DestructivePattern
	Capability  []CapabilityPattern
}

// BuiltinTables returns a Tables over only the builtin pattern sets. The
// slices are shared; callers must not mutate them.
func BuiltinTables() Tables {
	return Tables{
		Destructive: builtinDestructive,
		Capability:  builtinCapability,
	}
}
