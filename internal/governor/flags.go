package governor

import "strings"

// Flags is the governor mode bit-set, persisted by the host.
type Flags uint32

// Mode flags.
const (
	// FlagStrict auto-declines Medium and High threats.
	FlagStrict Flags = 1 << iota
	// FlagAuditAll records every callout, including terse Allows.
	FlagAuditAll
	// FlagVerbose expands the summary and reasoning length caps.
	FlagVerbose
	// FlagInteractive enables the user prompt for Medium and High threats.
	FlagInteractive
	// FlagCacheEnabled enables the evaluation cache.
	FlagCacheEnabled
)

// DefaultFlags is the mode a fresh governor starts in.
const DefaultFlags = FlagCacheEnabled

var flagNames = []struct {
	bit  Flags
	name string
}{
	{FlagStrict, "strict"},
	{FlagAuditAll, "audit-all"},
	{FlagVerbose, "verbose"},
	{FlagInteractive, "interactive"},
	{FlagCacheEnabled, "cache"},
}

// Has returns true if every bit in want is set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// String returns the set flag names comma-separated, or "none".
func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.bit != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ParseFlag resolves a single flag name, case-insensitive. Returns 0 for
// unknown names.
func ParseFlag(name string) Flags {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, fn := range flagNames {
		if fn.name == lower {
			return fn.bit
		}
	}
	return 0
}

// ParseFlags resolves a comma-separated flag list to a bit-set. Unknown
// names are ignored.
func ParseFlags(list string) Flags {
	var f Flags
	for _, part := range strings.Split(list, ",") {
		f |= ParseFlag(part)
	}
	return f
}
