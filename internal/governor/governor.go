// Package governor implements the PhantomOS policy governor: a preservation
// oriented gatekeeper that evaluates code submissions and operation callouts,
// caches verdicts, and keeps an auditable, rollbackable decision record.
package governor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phantomos/governor/internal/logger"
	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/types"
)

var log = logger.New("governor")

// Recorder receives a copy of every audit entry as it is committed, for
// durable telemetry mirroring. Record must not call back into the Governor.
type Recorder interface {
	Record(entry AuditEntry)
}

// Options configures a Governor. The zero value is usable: built-in pattern
// tables, headless, runtime host metrics, default flags.
type Options struct {
	// Analyzer supplies pattern tables. Nil means built-ins only.
	Analyzer *scan.Analyzer
	// Prompter handles interactive approval. Nil means headless.
	Prompter Prompter
	// Host feeds sampler metrics. Nil means the Go runtime.
	Host HostStats
	// Recorder mirrors audit entries. Nil disables mirroring.
	Recorder Recorder
	// Flags is the initial mode. Zero means DefaultFlags.
	Flags Flags
	// ApprovalCaps overrides the capability set that escalates to Medium.
	// Zero means DefaultApprovalCaps.
	ApprovalCaps types.CapabilityMask
	// CacheTTL bounds cached verdict lifetime. Zero means no expiry.
	CacheTTL time.Duration
	// Clock overrides time for tests.
	Clock func() time.Time
}

// Governor is the thread-safe façade over the whole policy state. One mutex
// guards everything; the scanner runs outside the lock, and the interactive
// prompt is the only suspension point.
type Governor struct {
	mu sync.Mutex

	analyzer     *scan.Analyzer
	prompter     Prompter
	recorder     Recorder
	clock        func() time.Time
	flags        Flags
	approvalCaps types.CapabilityMask
	cacheTTL     time.Duration

	cache   evalCache
	audit   *auditLog
	trust   *trustStore
	scopes  *scopeTable
	sampler *sampler
	tally   *counters

	closed bool
}

// New builds a Governor from options.
func New(opts Options) *Governor {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Flags == 0 {
		opts.Flags = DefaultFlags
	}
	if opts.ApprovalCaps == 0 {
		opts.ApprovalCaps = DefaultApprovalCaps
	}
	now := opts.Clock()
	g := &Governor{
		analyzer:     opts.Analyzer,
		prompter:     opts.Prompter,
		recorder:     opts.Recorder,
		clock:        opts.Clock,
		flags:        opts.Flags,
		approvalCaps: opts.ApprovalCaps,
		cacheTTL:     opts.CacheTTL,
		audit:        newAuditLog(),
		trust:        newTrustStore(),
		scopes:       newScopeTable(),
		sampler:      newSampler(opts.Host),
		tally:        newCounters(now),
	}
	log.Info("governor initialized, flags=%s", g.flags)
	return g
}

// Shutdown stops the governor. Every later operation returns Unavailable,
// and evaluations deny.
func (g *Governor) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	log.Info("governor shut down after %d checks", g.tally.checks)
}

// Run drives the periodic tick until ctx is cancelled.
func (g *Governor) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.Tick(now)
		}
	}
}

// scanCode runs the static scanner and behavioral analyzer through the
// configured analyzer, or the built-in tables when none is set.
func (g *Governor) scanCode(code []byte) (scan.Result, scan.BehaviorResult) {
	if g.analyzer != nil {
		return g.analyzer.Scan(code), g.analyzer.Behavior(code)
	}
	t := scan.BuiltinTables()
	return scan.Scan(code, t), scan.AnalyzeBehavior(code, t)
}

// Evaluate runs one code submission through the full pipeline. It never
// fails: every submission yields a verdict.
func (g *Governor) Evaluate(req EvalRequest) EvalResponse {
	now := g.clock()
	req.clamp()
	if req.TraceID == "" {
		req.TraceID = uuid.NewString()
	}
	if req.ArrivalTime.IsZero() {
		req.ArrivalTime = now
	}

	if g.isClosed() {
		return EvalResponse{
			Verdict:    types.VerdictDeny,
			Threat:     types.ThreatNone,
			Summary:    "governor unavailable",
			DecisionBy: types.DecisionAutoPolicy,
			TraceID:    req.TraceID,
		}
	}

	if len(req.Code) == 0 {
		resp := EvalResponse{
			Verdict:    types.VerdictAllow,
			Threat:     types.ThreatNone,
			Summary:    "empty submission",
			DecisionBy: types.DecisionAuto,
			TraceID:    req.TraceID,
		}
		g.commit(&req, &resp, now, false)
		return resp
	}

	req.Fingerprint = scan.FingerprintOf(req.Code)

	if resp, ok := g.cacheHit(&req, now); ok {
		return resp
	}

	res, behavior := g.scanCode(req.Code)
	req.InferredCaps = res.Caps
	req.Threat = assessThreat(&req, res, behavior, g.approvalCaps)

	flags := g.Flags()
	d := decide(&req, req.Threat, flags, g.prompter)

	resp := EvalResponse{
		Verdict:      d.verdict,
		Threat:       req.Threat,
		Summary:      g.bound(d.summary, MaxSummaryLen),
		Reasoning:    g.bound(strings.Join(req.ThreatReasons, "; "), MaxReasoningLen),
		DecisionBy:   d.by,
		UserPrompted: d.prompted,
		TraceID:      req.TraceID,
	}

	switch d.verdict {
	case types.VerdictAllow:
		resp.GrantedCaps = req.InferredCaps
		resp.Signature = Sign(req.Fingerprint, now)
		resp.ApprovedAt = now
		if g.cacheTTL > 0 {
			resp.ValidUntil = now.Add(g.cacheTTL)
		}
	case types.VerdictDeny:
		if alt := alternativeFor(res); alt != "" {
			resp.Alternative = g.bound(alt, MaxAlternativeLen)
		}
	}

	g.commit(&req, &resp, now, true)
	log.Debug("evaluated %s name=%q threat=%s verdict=%s by=%s",
		req.Fingerprint.Short(), req.Name, req.Threat, resp.Verdict, resp.DecisionBy)
	return resp
}

// bound applies a length cap, doubled in verbose mode.
func (g *Governor) bound(s string, max int) string {
	if g.Flags().Has(FlagVerbose) {
		max *= 2
	}
	return truncate(s, max)
}

func (g *Governor) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// cacheHit serves a previous verdict for the same fingerprint when caching
// is enabled.
func (g *Governor) cacheHit(req *EvalRequest, now time.Time) (EvalResponse, bool) {
	g.mu.Lock()
	if !g.flags.Has(FlagCacheEnabled) {
		g.mu.Unlock()
		return EvalResponse{}, false
	}
	entry, ok := g.cache.lookup(req.Fingerprint, now)
	if !ok {
		g.mu.Unlock()
		return EvalResponse{}, false
	}
	resp := EvalResponse{
		Verdict:     entry.Verdict,
		GrantedCaps: entry.GrantedCaps,
		Threat:      entry.Threat,
		Summary:     "cached verdict",
		DecisionBy:  types.DecisionCache,
		ValidUntil:  entry.ValidUntil,
		TraceID:     req.TraceID,
	}
	audit := AuditEntry{
		TraceID:     req.TraceID,
		Fingerprint: req.Fingerprint,
		Name:        req.Name,
		Policy:      types.PolicyCodeEval,
		Verdict:     entry.Verdict,
		Threat:      entry.Threat,
		GrantedCaps: entry.GrantedCaps,
		DecisionBy:  types.DecisionCache,
		Summary:     resp.Summary,
		PID:         req.OriginPID,
		Timestamp:   now,
		CanRollback: true,
	}
	g.audit.Append(audit)
	g.tally.record(types.PolicyCodeEval, entry.Verdict, entry.Threat, types.DecisionCache)
	g.sampler.lastThreat = entry.Threat
	g.mu.Unlock()

	g.mirror(audit)
	return resp, true
}

// commit persists the outcome of one evaluation: signature, cache, audit,
// counters. cacheable is false for the empty-input shortcut.
func (g *Governor) commit(req *EvalRequest, resp *EvalResponse, now time.Time, cacheable bool) {
	g.mu.Lock()
	if resp.Verdict == types.VerdictAllow && !resp.Signature.IsZero() {
		if err := g.trust.Add(resp.Signature); err != nil {
			log.Warn("trusted signature store full, approval for %s not retained", req.Fingerprint.Short())
		}
	}
	if cacheable && g.flags.Has(FlagCacheEnabled) {
		g.cache.store(req.Fingerprint, resp.Verdict, resp.GrantedCaps, resp.Threat, now, resp.ValidUntil)
	}
	audit := AuditEntry{
		TraceID:     req.TraceID,
		Fingerprint: req.Fingerprint,
		Name:        req.Name,
		Policy:      types.PolicyCodeEval,
		Verdict:     resp.Verdict,
		Threat:      resp.Threat,
		GrantedCaps: resp.GrantedCaps,
		DecisionBy:  resp.DecisionBy,
		Summary:     resp.Summary,
		PID:         req.OriginPID,
		Timestamp:   now,
		CanRollback: true,
	}
	g.audit.Append(audit)
	g.tally.record(types.PolicyCodeEval, resp.Verdict, resp.Threat, resp.DecisionBy)
	g.sampler.lastThreat = resp.Threat
	g.mu.Unlock()

	g.mirror(audit)
}

func (g *Governor) mirror(entry AuditEntry) {
	if g.recorder != nil {
		g.recorder.Record(entry)
	}
}

// CheckOperation runs one policy callout. Kernel-context callers are
// allowed outright but still audited.
func (g *Governor) CheckOperation(op Operation) OperationResult {
	now := g.clock()

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return OperationResult{
			Verdict:    types.VerdictDeny,
			Reason:     "governor unavailable",
			DecisionBy: types.DecisionAutoPolicy,
		}
	}

	var result OperationResult
	if op.Caps.IsKernel() {
		result = OperationResult{
			Verdict:    types.VerdictAllow,
			Reason:     "kernel context",
			DecisionBy: types.DecisionAuto,
		}
	} else {
		result = applyPolicy(op)
	}

	g.tally.record(op.Policy, result.Verdict, types.ThreatNone, result.DecisionBy)

	audited := result.Verdict != types.VerdictAllow ||
		g.flags.Has(FlagAuditAll) ||
		op.Caps.IsKernel()
	var entry AuditEntry
	if audited {
		entry = AuditEntry{
			Name:        op.Path,
			Policy:      op.Policy,
			Verdict:     result.Verdict,
			Threat:      types.ThreatNone,
			DecisionBy:  result.DecisionBy,
			Summary:     result.Reason,
			PID:         op.PID,
			Timestamp:   now,
			CanRollback: false,
		}
		g.audit.Append(entry)
	}
	g.mu.Unlock()

	if audited {
		g.mirror(entry)
	}
	return result
}

// Verify reports whether sig is a genuine approval signature for the code
// with the given fingerprint, by re-deriving the expected prefix from each
// recorded approval instant.
func (g *Governor) Verify(fp scan.Fingerprint, sig Signature) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.trust.Contains(sig) {
		return false
	}
	for i := 0; i < g.audit.Count(); i++ {
		e, _ := g.audit.Get(i)
		if e.Fingerprint != fp || e.Verdict != types.VerdictAllow || e.DecisionBy == types.DecisionCache {
			continue
		}
		if VerifySignature(fp, e.Timestamp, sig) {
			return true
		}
	}
	return false
}

// Trust appends a signature to the trusted store.
func (g *Governor) Trust(sig Signature) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrUnavailable
	}
	return g.trust.Add(sig)
}

// IsTrusted reports trusted-store membership.
func (g *Governor) IsTrusted(sig Signature) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trust.Contains(sig)
}

// TrustedCount returns the number of trusted signatures.
func (g *Governor) TrustedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trust.Count()
}

// Flags returns the current mode bit-set.
func (g *Governor) Flags() Flags {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flags
}

// SetFlags replaces the mode bit-set.
func (g *Governor) SetFlags(f Flags) {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.flags
	g.flags = f
	if old != f {
		log.Info("mode changed: %s -> %s", old, f)
	}
}

// Stats returns a cumulative counter snapshot.
func (g *Governor) Stats() Stats {
	now := g.clock()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statsLocked(now)
}

func (g *Governor) statsLocked(now time.Time) Stats {
	s := g.tally.snapshot(now)
	s.CacheHits = g.cache.hits
	s.CacheMisses = g.cache.misses
	s.CacheUsed = g.cache.used()
	s.TrustedCount = g.trust.Count()
	s.ScopeCount = g.scopes.Count()
	s.AuditCount = g.audit.Count()
	s.HistoryCount = g.audit.HistoryCount()
	return s
}

// HistoryCount counts recorded code evaluations.
func (g *Governor) HistoryCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.audit.HistoryCount()
}

// HistoryGet returns the i-th most recent code evaluation entry.
func (g *Governor) HistoryGet(i int) (AuditEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, _, ok := g.audit.HistoryGet(i)
	if !ok {
		return AuditEntry{}, ErrNotFound
	}
	return e, nil
}

// AuditCount counts all recorded entries, callouts included.
func (g *Governor) AuditCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.audit.Count()
}

// AuditGet returns the i-th most recent entry of any policy.
func (g *Governor) AuditGet(i int) (AuditEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.audit.Get(i)
	if !ok {
		return AuditEntry{}, ErrNotFound
	}
	return e, nil
}

// AuditRecent returns up to n most recent entries, newest first.
func (g *Governor) AuditRecent(n int) []AuditEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.audit.Recent(n)
}

// Rollback withdraws the i-th most recent evaluation: the cached verdict is
// invalidated and, for an Allow, the approval signature is removed from the
// trusted store. A rolled-back entry cannot be rolled back again.
func (g *Governor) Rollback(i int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrUnavailable
	}
	e, pos, ok := g.audit.HistoryGet(i)
	if !ok {
		return ErrNotFound
	}
	if !e.CanRollback {
		return ErrForbidden
	}
	g.cache.invalidate(e.Fingerprint)
	if e.Verdict == types.VerdictAllow {
		sig := Sign(e.Fingerprint, e.Timestamp)
		if !g.trust.Remove(sig) {
			log.Debug("rollback of %s: no trusted signature matched", e.Fingerprint.Short())
		}
	}
	g.audit.clearRollback(pos)
	log.Info("rolled back evaluation %s (%s)", e.Fingerprint.Short(), e.Verdict)
	return nil
}

// CacheClear drops every cached verdict and resets the hit/miss counters.
func (g *Governor) CacheClear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache.clear()
}

// CacheInvalidate drops the cached verdict for a fingerprint.
func (g *Governor) CacheInvalidate(fp scan.Fingerprint) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cache.invalidate(fp)
}

// CacheStats returns the cumulative hit and miss counters and the number of
// live entries.
func (g *Governor) CacheStats() (hits, misses uint64, used int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cache.hits, g.cache.misses, g.cache.used()
}

// ScopeAdd admits a standing grant.
func (g *Governor) ScopeAdd(s Scope) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrUnavailable
	}
	return g.scopes.Add(s)
}

// ScopeRemove deletes a scope by ID.
func (g *Governor) ScopeRemove(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scopes.Remove(id)
}

// ScopeCheck reports whether the capability is permitted for the path and
// size under the current scope table.
func (g *Governor) ScopeCheck(cap types.CapabilityMask, path string, size uint64) bool {
	now := g.clock()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scopes.Check(cap, path, size, now)
}

// ScopeCleanup compacts expired and inactive scopes, returning the number
// removed.
func (g *Governor) ScopeCleanup() int {
	now := g.clock()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scopes.Cleanup(now)
}

// Scopes returns a copy of the scope table.
func (g *Governor) Scopes() []Scope {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scopes.List()
}

// Tick runs one sampling pass. Derived state (trend, alerts, health,
// timeline, baseline, recommendations, quarantine) changes only here.
func (g *Governor) Tick(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	stats := g.statsLocked(now)
	recent := g.audit.Recent(HistoryMax)
	g.sampler.tick(now, stats, recent, g.flags)
}

// Overview is the UI-facing sideband snapshot. It is never a correctness
// surface.
type Overview struct {
	ThreatStr         string            `json:"threat_str"`
	TrendStr          string            `json:"trend_str"`
	AlertHighest      string            `json:"alert_highest"`
	RecommendationTop string            `json:"recommendation_top"`
	HealthScore       int               `json:"health_score"`
	LastScanTime      time.Time         `json:"last_scan_time"`
	Alerts            []Alert           `json:"alerts"`
	Recommendations   []Recommendation  `json:"recommendations"`
	Timeline          []TimelineSlot    `json:"timeline"`
	Quarantine        []AuditEntry      `json:"quarantine"`
	Deviations        int               `json:"deviations"`
	BaselineActive    bool              `json:"baseline_active"`
	Flags             string            `json:"flags"`
	Threat            types.ThreatLevel `json:"threat_level"`
}

// Overview returns the sampler-derived sideband state.
func (g *Governor) Overview() Overview {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.sampler
	o := Overview{
		ThreatStr:       s.lastThreat.String(),
		TrendStr:        s.trendStr,
		HealthScore:     s.health,
		LastScanTime:    s.lastScan,
		Alerts:          append([]Alert(nil), s.alerts...),
		Recommendations: append([]Recommendation(nil), s.recs...),
		Timeline:        s.timeline.Recent(s.timeline.Len()),
		Quarantine:      s.quarantine.Recent(s.quarantine.Len()),
		Deviations:      s.deviations,
		BaselineActive:  s.baseline != nil,
		Flags:           g.flags.String(),
		Threat:          s.lastThreat,
	}
	if a, ok := s.highestAlert(); ok {
		o.AlertHighest = a.Message
	}
	if r, ok := s.topRecommendation(); ok {
		o.RecommendationTop = r.Message
	}
	return o
}
