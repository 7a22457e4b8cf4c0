package governor

import (
	"runtime"
	"time"

	"github.com/phantomos/governor/internal/types"
)

// Sampler capacities and temporal parameters. These are the only temporal
// constants in the whole engine.
const (
	// TickInterval is the reference sampling cadence.
	TickInterval = 5 * time.Second

	TrendWindow     = 12
	TimelineWindow  = 24
	AlertMax        = 6
	RecommendMax    = 4
	QuarantineMax   = 8
	AlertExpiry     = 30 * time.Second
	BaselineChecks  = 100
	quarantineAge   = 6 * time.Second
	quarantineBatch = 3
	anomalyWindow   = 10
	anomalyAge      = 10 * time.Second
)

// AlertSeverity orders alert urgency.
type AlertSeverity int

// Alert severities, lowest to highest.
const (
	SeverityInfo AlertSeverity = iota
	SeverityWarning
	SeverityCritical
)

func (s AlertSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// Alert is one active anomaly notification.
type Alert struct {
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// TimelineSlot pairs the threat level and health score observed at one tick.
type TimelineSlot struct {
	Threat types.ThreatLevel `json:"threat_level"`
	Health int               `json:"health_score"`
}

// Recommendation is a pre-rendered advisory string with a priority; lower
// priority values surface first.
type Recommendation struct {
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// HostStats feeds the sampler its ambient metrics. The default reads the Go
// runtime; tests install a fixed source.
type HostStats interface {
	MemoryUsedPercent() int
	ActiveProcesses() int
}

type runtimeHostStats struct{}

func (runtimeHostStats) MemoryUsedPercent() int {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.Sys == 0 {
		return 0
	}
	return int(m.HeapInuse * 100 / m.Sys)
}

func (runtimeHostStats) ActiveProcesses() int {
	return runtime.NumGoroutine()
}

// tickSnapshot is the metric state captured at the end of each tick; the
// next tick diffs against it.
type tickSnapshot struct {
	taken      time.Time
	memPercent int
	processes  int
	violations uint64
	denies     uint64
}

// policyTally counts outcomes per policy for the behavioral baseline.
type policyTally struct {
	allows     uint64
	denies     uint64
	transforms uint64
}

func (t policyTally) total() uint64 {
	return t.allows + t.denies + t.transforms
}

func (t policyTally) denyRatio() float64 {
	if t.total() == 0 {
		return 0
	}
	return float64(t.denies) / float64(t.total())
}

// sampler holds all derived, UI-facing state. It is driven exclusively by
// tick and mutated only under the governor lock.
type sampler struct {
	host HostStats

	trend      *ring[uint64]
	timeline   *ring[TimelineSlot]
	quarantine *ring[AuditEntry]
	alerts     []Alert
	recs       []Recommendation

	prev     tickSnapshot
	havePrev bool

	baseline     map[types.Policy]policyTally
	deviations   int
	lastThreat   types.ThreatLevel
	health       int
	trendStr     string
	lastScan     time.Time
	captured     int // quarantine captures this critical episode
	capturedSeqs map[uint64]bool
}

func newSampler(host HostStats) *sampler {
	if host == nil {
		host = runtimeHostStats{}
	}
	return &sampler{
		host:         host,
		trend:        newRing[uint64](TrendWindow),
		timeline:     newRing[TimelineSlot](TimelineWindow),
		quarantine:   newRing[AuditEntry](QuarantineMax),
		trendStr:     "Analyzing...",
		health:       100,
		capturedSeqs: make(map[uint64]bool),
	}
}

// tick runs one sampling pass over the current counters and recent audits.
func (s *sampler) tick(now time.Time, stats Stats, recent []AuditEntry, flags Flags) {
	s.lastScan = now

	s.trend.Push(stats.TotalViolations())
	s.trendStr = s.trendString()

	s.expireAlerts(now)
	s.scanAnomalies(now, stats, recent)

	s.health = healthScore(s.prev.memPercent, s.prev.processes, stats.Denied, stats.UptimeSeconds)

	s.timeline.Push(TimelineSlot{Threat: s.lastThreat, Health: s.health})

	s.updateBaseline(stats, recent)
	s.recs = s.recommend(stats, flags)
	s.captureQuarantine(now, recent)
}

func (s *sampler) trendString() string {
	if s.trend.Len() < 3 {
		return "Analyzing..."
	}
	newest := int64(s.trend.At(0))
	oldest := int64(s.trend.At(s.trend.Len() - 1))
	switch delta := newest - oldest; {
	case delta > 2:
		return "Rising"
	case delta < -2:
		return "Falling"
	}
	return "Stable"
}

func (s *sampler) expireAlerts(now time.Time) {
	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if now.Sub(a.Timestamp) <= AlertExpiry {
			kept = append(kept, a)
		}
	}
	s.alerts = kept
}

func (s *sampler) raiseAlert(sev AlertSeverity, msg string, now time.Time) {
	for _, a := range s.alerts {
		if a.Message == msg {
			return
		}
	}
	if len(s.alerts) >= AlertMax {
		// drop the oldest to make room
		oldest := 0
		for i, a := range s.alerts {
			if a.Timestamp.Before(s.alerts[oldest].Timestamp) {
				oldest = i
			}
		}
		s.alerts = append(s.alerts[:oldest], s.alerts[oldest+1:]...)
	}
	s.alerts = append(s.alerts, Alert{Severity: sev, Message: msg, Timestamp: now})
}

func (s *sampler) scanAnomalies(now time.Time, stats Stats, recent []AuditEntry) {
	mem := s.host.MemoryUsedPercent()
	procs := s.host.ActiveProcesses()

	if s.havePrev {
		if mem-s.prev.memPercent > 20 {
			s.raiseAlert(SeverityWarning, "Memory spike", now)
		}
		if procs-s.prev.processes > 5 {
			s.raiseAlert(SeverityWarning, "Process surge", now)
		}
		if int64(stats.TotalViolations())-int64(s.prev.violations) > 3 {
			s.raiseAlert(SeverityCritical, "Violation burst", now)
		}
		if int64(stats.Denied)-int64(s.prev.denies) > 2 {
			s.raiseAlert(SeverityWarning, "Rapid denial pattern", now)
		}
	}

	var memDeny, killDeny, delTransform, resDeny int
	n := len(recent)
	if n > anomalyWindow {
		n = anomalyWindow
	}
	for i := 0; i < n; i++ {
		e := recent[i]
		if now.Sub(e.Timestamp) > anomalyAge {
			continue
		}
		switch {
		case e.Policy == types.PolicyMemFree && e.Verdict == types.VerdictDeny:
			memDeny++
		case e.Policy == types.PolicyProcKill && e.Verdict == types.VerdictDeny:
			killDeny++
		case e.Policy == types.PolicyFsDelete && e.Verdict == types.VerdictTransform:
			delTransform++
		case e.Policy == types.PolicyResExhaust && e.Verdict == types.VerdictDeny:
			resDeny++
		}
	}
	if memDeny >= 3 {
		s.raiseAlert(SeverityCritical, "Memory bomb pattern", now)
	}
	if killDeny >= 3 {
		s.raiseAlert(SeverityCritical, "Fork bomb/kill storm", now)
	}
	if delTransform >= 3 {
		s.raiseAlert(SeverityCritical, "Mass deletion attempt blocked", now)
	}
	if resDeny >= 1 {
		s.raiseAlert(SeverityCritical, "Resource exhaustion attempt", now)
	}

	s.prev = tickSnapshot{
		taken:      now,
		memPercent: mem,
		processes:  procs,
		violations: stats.TotalViolations(),
		denies:     stats.Denied,
	}
	s.havePrev = true
}

// healthScore composes four quarter-scores into 0..100.
func healthScore(memPercent, processes int, denies, uptimeSeconds uint64) int {
	memQ := 25 - memPercent/4
	if memQ < 0 {
		memQ = 0
	}
	procQ := 25
	if processes > 10 {
		procQ = 25 - (processes - 10)
		if procQ < 0 {
			procQ = 0
		}
	}
	vioQ := 25 - 5*int64(denies)
	if vioQ < 0 {
		vioQ = 0
	}
	upQ := int64(25 * uptimeSeconds / 600)
	if upQ > 25 {
		upQ = 25
	}
	return memQ + procQ + int(vioQ) + int(upQ)
}

func tallyPolicies(recent []AuditEntry) map[types.Policy]policyTally {
	out := make(map[types.Policy]policyTally)
	for _, e := range recent {
		t := out[e.Policy]
		switch e.Verdict {
		case types.VerdictAllow, types.VerdictAudit:
			t.allows++
		case types.VerdictDeny:
			t.denies++
		case types.VerdictTransform:
			t.transforms++
		}
		out[e.Policy] = t
	}
	return out
}

func (s *sampler) updateBaseline(stats Stats, recent []AuditEntry) {
	current := tallyPolicies(recent)

	if s.baseline == nil {
		if stats.TotalChecks >= BaselineChecks {
			s.baseline = current
		}
		s.deviations = 0
		return
	}

	dev := 0
	for policy, base := range s.baseline {
		cur := current[policy]
		if base.total() < 3 || cur.total() < 3 {
			continue
		}
		diff := cur.denyRatio() - base.denyRatio()
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.30 {
			dev++
		}
	}
	s.deviations = dev
}

func (s *sampler) recommend(stats Stats, flags Flags) []Recommendation {
	var recs []Recommendation
	add := func(msg string, prio int) {
		if len(recs) < RecommendMax {
			recs = append(recs, Recommendation{Message: msg, Priority: prio})
		}
	}
	if stats.Violations[types.DomainMemory] > 5 && !flags.Has(FlagStrict) {
		add("Enable Strict mode to block mem attacks", 1)
	}
	if s.health < 40 {
		add("Health low - investigate violations", 2)
	}
	if s.trendStr == "Rising" && !flags.Has(FlagAuditAll) {
		add("Threat rising - enable Audit-All", 1)
	}
	if len(s.alerts) > 0 {
		add("Active alerts - check Governor Overview", 1)
	}
	return recs
}

func (s *sampler) criticalActive() bool {
	for _, a := range s.alerts {
		if a.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func (s *sampler) captureQuarantine(now time.Time, recent []AuditEntry) {
	if !s.criticalActive() {
		s.captured = 0
		if len(s.capturedSeqs) > 4*QuarantineMax {
			s.capturedSeqs = make(map[uint64]bool)
		}
		return
	}
	n := len(recent)
	if n > 5 {
		n = 5
	}
	for i := 0; i < n && s.captured < quarantineBatch; i++ {
		e := recent[i]
		if now.Sub(e.Timestamp) > quarantineAge {
			continue
		}
		if e.Verdict != types.VerdictDeny && e.Verdict != types.VerdictTransform {
			continue
		}
		if s.capturedSeqs[e.Sequence] {
			continue
		}
		s.capturedSeqs[e.Sequence] = true
		s.quarantine.Push(e)
		s.captured++
	}
}

// highestAlert returns the most severe active alert.
func (s *sampler) highestAlert() (Alert, bool) {
	if len(s.alerts) == 0 {
		return Alert{}, false
	}
	best := s.alerts[0]
	for _, a := range s.alerts[1:] {
		if a.Severity > best.Severity {
			best = a
		}
	}
	return best, true
}

// topRecommendation returns the lowest-priority-number recommendation.
func (s *sampler) topRecommendation() (Recommendation, bool) {
	if len(s.recs) == 0 {
		return Recommendation{}, false
	}
	best := s.recs[0]
	for _, r := range s.recs[1:] {
		if r.Priority < best.Priority {
			best = r
		}
	}
	return best, true
}
