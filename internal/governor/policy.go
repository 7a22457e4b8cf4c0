package governor

import (
	"github.com/phantomos/governor/internal/types"
)

// Operation describes one policy callout: a governed choke-point operation
// the kernel asks about before acting.
type Operation struct {
	Policy types.Policy
	PID    uint32
	Caps   types.CapabilityMask
	Path   string
	Size   uint64
	Detail string
}

// OperationResult is the callout outcome the kernel acts on.
type OperationResult struct {
	Verdict     types.Verdict    `json:"verdict"`
	Reason      string           `json:"reason"`
	Alternative string           `json:"alternative,omitempty"`
	DecisionBy  types.DecisionBy `json:"decision_by"`
}

// applyPolicy maps an operation through the per-tag default table. Kernel
// callers never reach here; the façade short-circuits them first.
func applyPolicy(op Operation) OperationResult {
	switch op.Policy {
	case types.PolicyMemFree:
		return OperationResult{
			Verdict:    types.VerdictDeny,
			Reason:     "Free denied: memory is preserved, not reclaimed",
			DecisionBy: types.DecisionAutoPolicy,
		}
	case types.PolicyMemOverwrite:
		return OperationResult{
			Verdict:    types.VerdictDeny,
			Reason:     "Overwrite denied: allocate a new region instead",
			DecisionBy: types.DecisionAutoPolicy,
		}
	case types.PolicyProcKill:
		return OperationResult{
			Verdict:     types.VerdictTransform,
			Reason:      "Kill transformed: process suspended instead",
			Alternative: "suspend",
			DecisionBy:  types.DecisionAuto,
		}
	case types.PolicyProcExit:
		return OperationResult{
			Verdict:    types.VerdictAllow,
			Reason:     "Self-exit permitted",
			DecisionBy: types.DecisionAuto,
		}
	case types.PolicyFsDelete:
		if op.Caps.Has(types.CapHideFiles) {
			return OperationResult{
				Verdict:     types.VerdictTransform,
				Reason:      "Delete transformed: file hidden, data preserved",
				Alternative: "hide",
				DecisionBy:  types.DecisionAuto,
			}
		}
		return OperationResult{
			Verdict:    types.VerdictDeny,
			Reason:     "Delete denied: caller lacks hide capability",
			DecisionBy: types.DecisionAutoPolicy,
		}
	case types.PolicyFsTruncate:
		return OperationResult{
			Verdict:    types.VerdictDeny,
			Reason:     "Truncate denied: creates data loss. Create new version.",
			DecisionBy: types.DecisionAutoPolicy,
		}
	case types.PolicyFsOverwrite:
		return OperationResult{
			Verdict:     types.VerdictTransform,
			Reason:      "Overwrite transformed: new layer written, prior version kept",
			Alternative: "append-new-layer",
			DecisionBy:  types.DecisionAuto,
		}
	case types.PolicyFsHide:
		return OperationResult{
			Verdict:    types.VerdictAllow,
			Reason:     "Hide permitted: data remains recoverable",
			DecisionBy: types.DecisionAuto,
		}
	case types.PolicyFsPermDenied:
		return OperationResult{
			Verdict:    types.VerdictDeny,
			Reason:     "Permission denied by filesystem policy",
			DecisionBy: types.DecisionAutoPolicy,
		}
	case types.PolicyFsQuotaExceeded:
		return OperationResult{
			Verdict:    types.VerdictDeny,
			Reason:     "Quota exceeded",
			DecisionBy: types.DecisionAutoPolicy,
		}
	case types.PolicyResExhaust:
		return OperationResult{
			Verdict:    types.VerdictDeny,
			Reason:     "Allocation denied: request exceeds resource policy",
			DecisionBy: types.DecisionAutoPolicy,
		}
	}
	return OperationResult{
		Verdict:    types.VerdictDeny,
		Reason:     "Unknown policy tag",
		DecisionBy: types.DecisionAutoPolicy,
	}
}
