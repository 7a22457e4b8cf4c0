package types

import "testing"

func TestVerdictValid(t *testing.T) {
	for _, v := range []Verdict{VerdictAllow, VerdictDeny, VerdictTransform, VerdictAudit, VerdictQuery} {
		if !v.Valid() {
			t.Errorf("Verdict(%q).Valid() = false, want true", v)
		}
	}
	if Verdict("MAYBE").Valid() {
		t.Error("arbitrary string should not be a valid verdict")
	}
}

func TestVerdictPermits(t *testing.T) {
	tests := []struct {
		verdict Verdict
		want    bool
	}{
		{VerdictAllow, true},
		{VerdictAudit, true},
		{VerdictTransform, true},
		{VerdictDeny, false},
		{VerdictQuery, false},
	}
	for _, tt := range tests {
		if got := tt.verdict.Permits(); got != tt.want {
			t.Errorf("%s.Permits() = %v, want %v", tt.verdict, got, tt.want)
		}
	}
}

func TestThreatLevelOrder(t *testing.T) {
	levels := []ThreatLevel{ThreatNone, ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical}
	for i := 1; i < len(levels); i++ {
		if levels[i] <= levels[i-1] {
			t.Errorf("threat levels not strictly increasing at %s", levels[i])
		}
	}
	if ThreatMedium.Max(ThreatHigh) != ThreatHigh {
		t.Error("Max should escalate Medium to High")
	}
	if ThreatHigh.Max(ThreatLow) != ThreatHigh {
		t.Error("Max should never de-escalate")
	}
}

func TestThreatLevelString(t *testing.T) {
	tests := []struct {
		level ThreatLevel
		want  string
	}{
		{ThreatNone, "None"},
		{ThreatLow, "Low"},
		{ThreatMedium, "Medium"},
		{ThreatHigh, "High"},
		{ThreatCritical, "Critical"},
		{ThreatLevel(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("ThreatLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestPolicyDomain(t *testing.T) {
	tests := []struct {
		policy Policy
		want   Domain
	}{
		{PolicyMemFree, DomainMemory},
		{PolicyMemOverwrite, DomainMemory},
		{PolicyProcKill, DomainProcess},
		{PolicyProcExit, DomainProcess},
		{PolicyFsDelete, DomainFilesystem},
		{PolicyFsQuotaExceeded, DomainFilesystem},
		{PolicyResExhaust, DomainResource},
		{PolicyCodeEval, DomainNone},
	}
	for _, tt := range tests {
		if got := tt.policy.Domain(); got != tt.want {
			t.Errorf("Policy(%s).Domain() = %s, want %s", tt.policy, got, tt.want)
		}
	}
}

func TestAllPoliciesValid(t *testing.T) {
	for _, p := range AllPolicies() {
		if !p.Valid() {
			t.Errorf("AllPolicies() contains invalid policy %s", p)
		}
	}
	if Policy("FS_SHRED").Valid() {
		t.Error("unknown policy tag should not be valid")
	}
}

func TestCapabilityMask(t *testing.T) {
	m := CapNetwork | CapSystemConfig
	if !m.Has(CapNetwork) {
		t.Error("Has(CapNetwork) = false")
	}
	if m.Has(CapNetwork | CapRawDevice) {
		t.Error("Has should require all bits")
	}
	if !m.HasAny(CapRawDevice | CapSystemConfig) {
		t.Error("HasAny should match a single bit")
	}
	if m.IsKernel() {
		t.Error("IsKernel without kernel bit")
	}
	if !(m | CapKernel).IsKernel() {
		t.Error("IsKernel with kernel bit")
	}
}

func TestCapabilityMaskString(t *testing.T) {
	if got := CapNone.String(); got != "none" {
		t.Errorf("CapNone.String() = %q, want none", got)
	}
	got := (CapNetwork | CapHideFiles).String()
	if got != "HIDE_FILES, NETWORK" {
		t.Errorf("String() = %q, want bit order HIDE_FILES, NETWORK", got)
	}
}

func TestParseCapabilities(t *testing.T) {
	tests := []struct {
		input string
		want  CapabilityMask
	}{
		{"NETWORK", CapNetwork},
		{"network", CapNetwork},
		{" hide_files , kernel ", CapHideFiles | CapKernel},
		{"bogus", CapNone},
		{"", CapNone},
	}
	for _, tt := range tests {
		if got := ParseCapabilities(tt.input); got != tt.want {
			t.Errorf("ParseCapabilities(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogLevelValid(t *testing.T) {
	valid := []LogLevel{LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, ""}
	for _, l := range valid {
		if !l.Valid() {
			t.Errorf("LogLevel(%q).Valid() = false, want true", l)
		}
	}
	invalid := []LogLevel{"invalid", "verbose", "fatal"}
	for _, l := range invalid {
		if l.Valid() {
			t.Errorf("LogLevel(%q).Valid() = true, want false", l)
		}
	}
}
