// Package types defines common type-safe enums used across the codebase.
package types

import "strings"

// Verdict is the Governor's final decision on an operation or code submission.
type Verdict string

const (
	// VerdictAllow permits the operation.
	VerdictAllow Verdict = "ALLOW"
	// VerdictDeny forbids the operation.
	VerdictDeny Verdict = "DENY"
	// VerdictTransform replaces the operation with a preservation-equivalent one.
	VerdictTransform Verdict = "TRANSFORM"
	// VerdictAudit permits the operation but records it.
	VerdictAudit Verdict = "AUDIT"
	// VerdictQuery defers the decision to the interactive prompt.
	VerdictQuery Verdict = "QUERY"
)

// Valid returns true if the Verdict is a known valid value.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictAllow, VerdictDeny, VerdictTransform, VerdictAudit, VerdictQuery:
		return true
	}
	return false
}

// Permits returns true if the verdict lets the operation (or a transformed
// equivalent of it) proceed.
func (v Verdict) Permits() bool {
	return v == VerdictAllow || v == VerdictAudit || v == VerdictTransform
}

// ThreatLevel classifies how dangerous a submission is. Levels form a total
// order; analysis only ever raises the level.
type ThreatLevel int

// Threat levels, lowest to highest.
const (
	ThreatNone ThreatLevel = iota
	ThreatLow
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

// String returns the human-readable threat level name.
func (t ThreatLevel) String() string {
	switch t {
	case ThreatNone:
		return "None"
	case ThreatLow:
		return "Low"
	case ThreatMedium:
		return "Medium"
	case ThreatHigh:
		return "High"
	case ThreatCritical:
		return "Critical"
	}
	return "Unknown"
}

// Valid returns true if the level is within the defined range.
func (t ThreatLevel) Valid() bool {
	return t >= ThreatNone && t <= ThreatCritical
}

// Max returns the higher of t and other. Used by the assessor so escalation
// never de-escalates.
func (t ThreatLevel) Max(other ThreatLevel) ThreatLevel {
	if other > t {
		return other
	}
	return t
}

// Policy identifies a governed operation class. The string values are the
// stable wire tags recorded in audit entries and telemetry.
type Policy string

// Policy tags for every choke-point the Governor fronts.
const (
	PolicyMemFree         Policy = "MEM_FREE"
	PolicyMemOverwrite    Policy = "MEM_OVERWRITE"
	PolicyProcKill        Policy = "PROC_KILL"
	PolicyProcExit        Policy = "PROC_EXIT"
	PolicyFsDelete        Policy = "FS_DELETE"
	PolicyFsTruncate      Policy = "FS_TRUNCATE"
	PolicyFsOverwrite     Policy = "FS_OVERWRITE"
	PolicyFsHide          Policy = "FS_HIDE"
	PolicyFsPermDenied    Policy = "FS_PERM_DENIED"
	PolicyFsQuotaExceeded Policy = "FS_QUOTA_EXCEEDED"
	PolicyResExhaust      Policy = "RES_EXHAUST"
	// PolicyCodeEval tags audit entries produced by full code evaluations
	// rather than operation callouts.
	PolicyCodeEval Policy = "CODE_EVAL"
)

// AllPolicies returns every operation callout policy (excludes CODE_EVAL).
func AllPolicies() []Policy {
	return []Policy{
		PolicyMemFree, PolicyMemOverwrite,
		PolicyProcKill, PolicyProcExit,
		PolicyFsDelete, PolicyFsTruncate, PolicyFsOverwrite, PolicyFsHide,
		PolicyFsPermDenied, PolicyFsQuotaExceeded,
		PolicyResExhaust,
	}
}

// Valid returns true if the Policy is a known tag.
func (p Policy) Valid() bool {
	if p == PolicyCodeEval {
		return true
	}
	for _, known := range AllPolicies() {
		if p == known {
			return true
		}
	}
	return false
}

// Domain returns the policy's operation domain for violation accounting.
func (p Policy) Domain() Domain {
	switch p {
	case PolicyMemFree, PolicyMemOverwrite:
		return DomainMemory
	case PolicyProcKill, PolicyProcExit:
		return DomainProcess
	case PolicyFsDelete, PolicyFsTruncate, PolicyFsOverwrite,
		PolicyFsHide, PolicyFsPermDenied, PolicyFsQuotaExceeded:
		return DomainFilesystem
	case PolicyResExhaust:
		return DomainResource
	}
	return DomainNone
}

// Domain groups policies for per-domain violation counters.
type Domain string

// Operation domains.
const (
	DomainNone       Domain = ""
	DomainMemory     Domain = "MEMORY"
	DomainProcess    Domain = "PROCESS"
	DomainFilesystem Domain = "FILESYSTEM"
	DomainResource   Domain = "RESOURCE"
)

// DecisionBy records which path produced a verdict.
type DecisionBy string

// Decision makers.
const (
	DecisionAuto         DecisionBy = "auto"
	DecisionUser         DecisionBy = "user"
	DecisionStrictPolicy DecisionBy = "strict-policy"
	DecisionAutoPolicy   DecisionBy = "auto-policy"
	DecisionCache        DecisionBy = "cache"
)

// Valid returns true if the DecisionBy is a known value.
func (d DecisionBy) Valid() bool {
	switch d {
	case DecisionAuto, DecisionUser, DecisionStrictPolicy, DecisionAutoPolicy, DecisionCache:
		return true
	}
	return false
}

// LogLevel represents a logging verbosity level.
type LogLevel string

// Log levels.
const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Valid returns true if the LogLevel is a known value. Empty string is
// valid and means the default (info).
func (l LogLevel) Valid() bool {
	switch LogLevel(strings.ToLower(string(l))) {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return true
	}
	return false
}
