package governor

import (
	"fmt"

	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/types"
)

// DefaultApprovalCaps is the default set of capabilities that pull an
// evaluation up to Medium, requiring user approval in interactive mode.
const DefaultApprovalCaps = types.CapHighMemory |
	types.CapHighPriority |
	types.CapSystemConfig |
	types.CapRawDevice |
	types.CapNetwork

// assessThreat composes the static scan and the behavioral result into a
// threat level. Rules apply in priority order and only ever escalate.
func assessThreat(req *EvalRequest, res scan.Result, behavior scan.BehaviorResult, approvalCaps types.CapabilityMask) types.ThreatLevel {
	caps := res.Caps

	if res.Destructive {
		req.addReason(fmt.Sprintf("destructive pattern %q: %s", res.Lexeme, res.Description))
		return types.ThreatCritical
	}

	level := types.ThreatNone
	raise := func(min types.ThreatLevel, reason string) {
		if min > level {
			level = min
		}
		req.addReason(reason)
	}

	if caps.Has(types.CapGovernorBypass) {
		raise(types.ThreatHigh, "requests governor bypass")
	}
	if caps.Has(types.CapNetwork) && caps.Has(types.CapSystemConfig) {
		raise(types.ThreatHigh, "combines network access with system configuration")
	}
	if behavior.Score >= 50 {
		raise(types.ThreatHigh, fmt.Sprintf("behavior score %d", behavior.Score))
	} else if behavior.Score >= 30 {
		raise(types.ThreatMedium, fmt.Sprintf("behavior score %d", behavior.Score))
	}
	if m := caps & approvalCaps; m != 0 && level < types.ThreatMedium {
		raise(types.ThreatMedium, "capability requires approval: "+m.String())
	}
	if level == types.ThreatNone && caps.HasAny(types.CapCreateProcess|types.CapHighMemory) {
		raise(types.ThreatLow, "spawns processes or allocates heavily")
	}

	for _, d := range behavior.Descriptions {
		req.addReason(d)
	}
	return level
}
