package types

import "strings"

// CapabilityMask is a bit set over the fixed capability enumeration. Bits are
// only ever added during analysis.
type CapabilityMask uint32

// Capability bits.
const (
	CapNone          CapabilityMask = 0
	CapReadFiles     CapabilityMask = 1 << 0
	CapWriteFiles    CapabilityMask = 1 << 1
	CapCreateFiles   CapabilityMask = 1 << 2
	CapHideFiles     CapabilityMask = 1 << 3
	CapCreateProcess CapabilityMask = 1 << 4
	CapIpcSend       CapabilityMask = 1 << 5
	CapIpcReceive    CapabilityMask = 1 << 6
	CapAllocMemory   CapabilityMask = 1 << 7
	CapHighMemory    CapabilityMask = 1 << 8
	CapHighPriority  CapabilityMask = 1 << 9
	CapNetwork       CapabilityMask = 1 << 10
	CapSystemConfig  CapabilityMask = 1 << 11
	CapRawDevice     CapabilityMask = 1 << 12
	CapGovernorBypass CapabilityMask = 1 << 13
	CapReadProcFs    CapabilityMask = 1 << 14
	CapReadDevFs     CapabilityMask = 1 << 15
	CapNetworkSecure CapabilityMask = 1 << 16
	CapNetworkInsecure CapabilityMask = 1 << 17

	// CapKernel marks a kernel-mode caller. Callouts short-circuit to Allow
	// but still record an audit entry.
	CapKernel CapabilityMask = 1 << 31
)

var capNames = []struct {
	bit  CapabilityMask
	name string
}{
	{CapReadFiles, "READ_FILES"},
	{CapWriteFiles, "WRITE_FILES"},
	{CapCreateFiles, "CREATE_FILES"},
	{CapHideFiles, "HIDE_FILES"},
	{CapCreateProcess, "CREATE_PROCESS"},
	{CapIpcSend, "IPC_SEND"},
	{CapIpcReceive, "IPC_RECEIVE"},
	{CapAllocMemory, "ALLOC_MEMORY"},
	{CapHighMemory, "HIGH_MEMORY"},
	{CapHighPriority, "HIGH_PRIORITY"},
	{CapNetwork, "NETWORK"},
	{CapSystemConfig, "SYSTEM_CONFIG"},
	{CapRawDevice, "RAW_DEVICE"},
	{CapGovernorBypass, "GOVERNOR_BYPASS"},
	{CapReadProcFs, "READ_PROCFS"},
	{CapReadDevFs, "READ_DEVFS"},
	{CapNetworkSecure, "NETWORK_SECURE"},
	{CapNetworkInsecure, "NETWORK_INSECURE"},
	{CapKernel, "KERNEL"},
}

// Has returns true if every bit in want is set in m.
func (m CapabilityMask) Has(want CapabilityMask) bool {
	return m&want == want
}

// HasAny returns true if any bit in want is set in m.
func (m CapabilityMask) HasAny(want CapabilityMask) bool {
	return m&want != 0
}

// IsKernel returns true if the kernel-context bit is set.
func (m CapabilityMask) IsKernel() bool {
	return m.Has(CapKernel)
}

// List returns the names of all set bits.
func (m CapabilityMask) List() []string {
	if m == CapNone {
		return nil
	}
	var names []string
	for _, c := range capNames {
		if m&c.bit != 0 {
			names = append(names, c.name)
		}
	}
	return names
}

// String returns a comma-separated list of set capability names, or "none".
func (m CapabilityMask) String() string {
	names := m.List()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// ParseCapability resolves a single capability name to its bit. Returns
// CapNone for unknown names.
func ParseCapability(name string) CapabilityMask {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, c := range capNames {
		if c.name == upper {
			return c.bit
		}
	}
	return CapNone
}

// ParseCapabilities resolves a comma-separated capability list to a mask.
// Unknown names are ignored.
func ParseCapabilities(list string) CapabilityMask {
	var mask CapabilityMask
	for _, part := range strings.Split(list, ",") {
		mask |= ParseCapability(part)
	}
	return mask
}
