package governor

import (
	"time"

	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/types"
)

// HistoryMax is the audit ring capacity.
const HistoryMax = 128

// AuditEntry is one immutable record of a completed decision. Entries for
// full code evaluations carry PolicyCodeEval; operation callouts carry their
// policy tag.
type AuditEntry struct {
	Sequence    uint64               `json:"sequence"`
	TraceID     string               `json:"trace_id,omitempty"`
	Fingerprint scan.Fingerprint     `json:"fingerprint"`
	Name        string               `json:"name"`
	Policy      types.Policy         `json:"policy"`
	Verdict     types.Verdict        `json:"verdict"`
	Threat      types.ThreatLevel    `json:"threat_level"`
	GrantedCaps types.CapabilityMask `json:"granted_caps"`
	DecisionBy  types.DecisionBy     `json:"decision_by"`
	Summary     string               `json:"summary"`
	PID         uint32               `json:"pid,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
	CanRollback bool                 `json:"can_rollback"`
}

// auditLog is the circular decision record. One ring holds both evaluations
// and callouts; the history view filters to evaluations.
type auditLog struct {
	entries *ring[AuditEntry]
	seq     uint64
}

func newAuditLog() *auditLog {
	return &auditLog{entries: newRing[AuditEntry](HistoryMax)}
}

// Append records an entry, stamping its sequence number. Critical decisions
// are never rollbackable.
func (a *auditLog) Append(e AuditEntry) {
	a.seq++
	e.Sequence = a.seq
	e.CanRollback = e.CanRollback && e.Threat != types.ThreatCritical
	a.entries.Push(e)
}

// Count returns the number of stored entries.
func (a *auditLog) Count() int {
	return a.entries.Len()
}

// Get returns the i-th most recent entry of any policy.
func (a *auditLog) Get(i int) (AuditEntry, bool) {
	if i < 0 || i >= a.entries.Len() {
		return AuditEntry{}, false
	}
	return a.entries.At(i), true
}

// HistoryCount counts code evaluation entries.
func (a *auditLog) HistoryCount() int {
	n := 0
	for i := 0; i < a.entries.Len(); i++ {
		if a.entries.At(i).Policy == types.PolicyCodeEval {
			n++
		}
	}
	return n
}

// HistoryGet returns the i-th most recent code evaluation entry along with
// its position in the full ring.
func (a *auditLog) HistoryGet(i int) (AuditEntry, int, bool) {
	seen := 0
	for pos := 0; pos < a.entries.Len(); pos++ {
		e := a.entries.At(pos)
		if e.Policy != types.PolicyCodeEval {
			continue
		}
		if seen == i {
			return e, pos, true
		}
		seen++
	}
	return AuditEntry{}, 0, false
}

// clearRollback marks the entry at ring position pos non-rollbackable.
func (a *auditLog) clearRollback(pos int) {
	e := a.entries.At(pos)
	e.CanRollback = false
	a.entries.SetAt(pos, e)
}

// Recent returns up to n most recent entries of any policy, newest first.
func (a *auditLog) Recent(n int) []AuditEntry {
	return a.entries.Recent(n)
}
