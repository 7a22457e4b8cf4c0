package governor

import (
	"time"

	"github.com/phantomos/governor/internal/types"
)

// Stats is a snapshot of the governor's cumulative counters.
type Stats struct {
	StartedAt        time.Time `json:"started_at"`
	UptimeSeconds    uint64    `json:"uptime_seconds"`
	TotalEvaluations uint64    `json:"total_evaluations"`
	TotalChecks      uint64    `json:"total_checks"` // evaluations + callouts
	Allowed          uint64    `json:"allowed"`
	Denied           uint64    `json:"denied"`
	Transformed      uint64    `json:"transformed"`
	AutoApproved     uint64    `json:"auto_approved"`
	UserApproved     uint64    `json:"user_approved"`
	AutoDeclined     uint64    `json:"auto_declined"`
	UserDeclined     uint64    `json:"user_declined"`

	// ThreatCounts indexes by ThreatLevel, None through Critical.
	ThreatCounts [5]uint64 `json:"threat_counts"`

	// Violations counts denies and transforms per operation domain.
	Violations map[types.Domain]uint64 `json:"violations"`

	CacheHits    uint64 `json:"cache_hits"`
	CacheMisses  uint64 `json:"cache_misses"`
	CacheUsed    int    `json:"cache_used"`
	TrustedCount int    `json:"trusted_count"`
	ScopeCount   int    `json:"scope_count"`
	AuditCount   int    `json:"audit_count"`
	HistoryCount int    `json:"history_count"`
}

// TotalViolations is the trend input: denies plus transforms.
func (s *Stats) TotalViolations() uint64 {
	return s.Denied + s.Transformed
}

// counters is the mutable tally behind Stats snapshots.
type counters struct {
	startedAt    time.Time
	evaluations  uint64
	checks       uint64
	allowed      uint64
	denied       uint64
	transformed  uint64
	autoApproved uint64
	userApproved uint64
	autoDeclined uint64
	userDeclined uint64
	threatCounts [5]uint64
	violations   map[types.Domain]uint64
}

func newCounters(now time.Time) *counters {
	return &counters{
		startedAt:  now,
		violations: make(map[types.Domain]uint64),
	}
}

// record tallies one completed decision.
func (c *counters) record(policy types.Policy, verdict types.Verdict, threat types.ThreatLevel, by types.DecisionBy) {
	c.checks++
	if policy == types.PolicyCodeEval {
		c.evaluations++
	}
	if threat.Valid() {
		c.threatCounts[threat]++
	}
	switch verdict {
	case types.VerdictAllow, types.VerdictAudit:
		c.allowed++
		if by == types.DecisionUser {
			c.userApproved++
		} else {
			c.autoApproved++
		}
	case types.VerdictDeny:
		c.denied++
		if by == types.DecisionUser {
			c.userDeclined++
		} else {
			c.autoDeclined++
		}
		c.violate(policy)
	case types.VerdictTransform:
		c.transformed++
		c.autoApproved++
		c.violate(policy)
	}
}

func (c *counters) violate(policy types.Policy) {
	if d := policy.Domain(); d != types.DomainNone {
		c.violations[d]++
	}
}

// snapshot copies the tally into a Stats value.
func (c *counters) snapshot(now time.Time) Stats {
	s := Stats{
		StartedAt:        c.startedAt,
		UptimeSeconds:    uint64(now.Sub(c.startedAt) / time.Second),
		TotalEvaluations: c.evaluations,
		TotalChecks:      c.checks,
		Allowed:          c.allowed,
		Denied:           c.denied,
		Transformed:      c.transformed,
		AutoApproved:     c.autoApproved,
		UserApproved:     c.userApproved,
		AutoDeclined:     c.autoDeclined,
		UserDeclined:     c.userDeclined,
		ThreatCounts:     c.threatCounts,
		Violations:       make(map[types.Domain]uint64, len(c.violations)),
	}
	for d, n := range c.violations {
		s.Violations[d] = n
	}
	return s
}
