package governor

import (
	"time"

	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/types"
)

// Field length caps. Oversized inputs are truncated before scanning rather
// than rejected; evaluate never fails.
const (
	MaxNameLen        = 63
	MaxDescriptionLen = 255
	MaxSummaryLen     = 127
	MaxReasoningLen   = 511
	MaxAlternativeLen = 255

	// MaxThreatReasons bounds the reasons accumulated per request.
	MaxThreatReasons = 4
)

// EvalRequest is one code submission. The caller fills the top fields; the
// evaluator fills the analysis fields during the run.
type EvalRequest struct {
	Code        []byte
	Name        string
	Description string
	OriginPID   uint32
	OriginCaps  types.CapabilityMask
	ArrivalTime time.Time

	// Filled during analysis.
	Fingerprint   scan.Fingerprint
	InferredCaps  types.CapabilityMask
	ThreatReasons []string
	Threat        types.ThreatLevel
	TraceID       string
}

// addReason records a threat reason up to the per-request cap.
func (r *EvalRequest) addReason(reason string) {
	if len(r.ThreatReasons) < MaxThreatReasons {
		r.ThreatReasons = append(r.ThreatReasons, reason)
	}
}

// clamp truncates oversized name and description fields in place.
func (r *EvalRequest) clamp() {
	if len(r.Name) > MaxNameLen {
		r.Name = r.Name[:MaxNameLen]
	}
	if len(r.Description) > MaxDescriptionLen {
		r.Description = r.Description[:MaxDescriptionLen]
	}
}

// EvalResponse is the outcome of one evaluation.
type EvalResponse struct {
	Verdict      types.Verdict        `json:"verdict"`
	GrantedCaps  types.CapabilityMask `json:"granted_caps"`
	Threat       types.ThreatLevel    `json:"threat_level"`
	Summary      string               `json:"summary"`
	Reasoning    string               `json:"reasoning"`
	Alternative  string               `json:"alternative,omitempty"`
	DecisionBy   types.DecisionBy     `json:"decision_by"`
	Signature    Signature            `json:"signature,omitempty"`
	ApprovedAt   time.Time            `json:"approved_at,omitempty"`
	ValidUntil   time.Time            `json:"valid_until,omitempty"`
	UserPrompted bool                 `json:"user_prompted"`
	TraceID      string               `json:"trace_id,omitempty"`
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
