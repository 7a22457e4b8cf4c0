package governor

import (
	"testing"
	"time"

	"github.com/phantomos/governor/internal/types"
)

func TestHealthScore(t *testing.T) {
	tests := []struct {
		name    string
		mem     int
		procs   int
		denies  uint64
		uptime  uint64
		want    int
	}{
		{"perfect", 0, 0, 0, 600, 100},
		{"memory pressure", 40, 0, 0, 600, 90},
		{"process pressure", 0, 20, 0, 600, 90},
		{"violations", 0, 0, 2, 600, 90},
		{"many violations floor", 0, 0, 50, 600, 75},
		{"fresh boot", 0, 0, 0, 0, 75},
		{"half uptime ramp", 0, 0, 0, 300, 87},
		{"everything bad", 100, 100, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := healthScore(tt.mem, tt.procs, tt.denies, tt.uptime)
			if got != tt.want {
				t.Errorf("healthScore(%d,%d,%d,%d) = %d, want %d",
					tt.mem, tt.procs, tt.denies, tt.uptime, got, tt.want)
			}
		})
	}
}

func TestTrendString(t *testing.T) {
	now := time.Now()
	host := &fakeHost{}

	run := func(violations []uint64) string {
		s := newSampler(host)
		for _, v := range violations {
			s.tick(now, Stats{Denied: v}, nil, DefaultFlags)
		}
		return s.trendStr
	}

	tests := []struct {
		name       string
		violations []uint64
		want       string
	}{
		{"too few samples", []uint64{1, 2}, "Analyzing..."},
		{"rising", []uint64{0, 2, 5}, "Rising"},
		{"stable", []uint64{3, 3, 4}, "Stable"},
		{"falling", []uint64{9, 4, 1}, "Falling"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.violations); got != tt.want {
				t.Errorf("trend = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnomalyAlerts(t *testing.T) {
	now := time.Now()

	t.Run("memory spike", func(t *testing.T) {
		host := &fakeHost{mem: 10, procs: 5}
		s := newSampler(host)
		s.tick(now, Stats{}, nil, DefaultFlags)
		host.mem = 40
		s.tick(now.Add(TickInterval), Stats{}, nil, DefaultFlags)
		requireAlert(t, s, "Memory spike")
	})

	t.Run("process surge", func(t *testing.T) {
		host := &fakeHost{mem: 10, procs: 5}
		s := newSampler(host)
		s.tick(now, Stats{}, nil, DefaultFlags)
		host.procs = 20
		s.tick(now.Add(TickInterval), Stats{}, nil, DefaultFlags)
		requireAlert(t, s, "Process surge")
	})

	t.Run("violation burst", func(t *testing.T) {
		host := &fakeHost{}
		s := newSampler(host)
		s.tick(now, Stats{Denied: 1}, nil, DefaultFlags)
		s.tick(now.Add(TickInterval), Stats{Denied: 6}, nil, DefaultFlags)
		requireAlert(t, s, "Violation burst")
		requireAlert(t, s, "Rapid denial pattern")
	})

	t.Run("memory bomb pattern from audits", func(t *testing.T) {
		host := &fakeHost{}
		s := newSampler(host)
		recent := []AuditEntry{
			{Policy: types.PolicyMemFree, Verdict: types.VerdictDeny, Timestamp: now},
			{Policy: types.PolicyMemFree, Verdict: types.VerdictDeny, Timestamp: now},
			{Policy: types.PolicyMemFree, Verdict: types.VerdictDeny, Timestamp: now},
		}
		s.tick(now, Stats{}, recent, DefaultFlags)
		requireAlert(t, s, "Memory bomb pattern")
	})

	t.Run("resource exhaustion single hit", func(t *testing.T) {
		host := &fakeHost{}
		s := newSampler(host)
		recent := []AuditEntry{
			{Policy: types.PolicyResExhaust, Verdict: types.VerdictDeny, Timestamp: now},
		}
		s.tick(now, Stats{}, recent, DefaultFlags)
		requireAlert(t, s, "Resource exhaustion attempt")
	})

	t.Run("stale audits ignored", func(t *testing.T) {
		host := &fakeHost{}
		s := newSampler(host)
		old := now.Add(-time.Minute)
		recent := []AuditEntry{
			{Policy: types.PolicyResExhaust, Verdict: types.VerdictDeny, Timestamp: old},
		}
		s.tick(now, Stats{}, recent, DefaultFlags)
		if len(s.alerts) != 0 {
			t.Errorf("stale audit raised alerts: %v", s.alerts)
		}
	})
}

func requireAlert(t *testing.T, s *sampler, msg string) {
	t.Helper()
	for _, a := range s.alerts {
		if a.Message == msg {
			return
		}
	}
	t.Errorf("alert %q not raised; have %v", msg, s.alerts)
}

func TestAlertExpiry(t *testing.T) {
	now := time.Now()
	host := &fakeHost{mem: 10}
	s := newSampler(host)
	s.tick(now, Stats{}, nil, DefaultFlags)
	host.mem = 50
	s.tick(now.Add(TickInterval), Stats{}, nil, DefaultFlags)
	requireAlert(t, s, "Memory spike")

	// hold memory steady so the alert is not re-raised, then pass the horizon
	later := now.Add(TickInterval + AlertExpiry + time.Second)
	s.tick(later, Stats{}, nil, DefaultFlags)
	for _, a := range s.alerts {
		if a.Message == "Memory spike" {
			t.Error("alert survived past expiry")
		}
	}
}

func TestRecommendations(t *testing.T) {
	now := time.Now()
	host := &fakeHost{mem: 99, procs: 99}
	s := newSampler(host)

	stats := Stats{
		Denied:     10,
		Violations: map[types.Domain]uint64{types.DomainMemory: 6},
	}
	s.tick(now, stats, nil, 0) // strict off, audit-all off
	s.tick(now.Add(TickInterval), stats, nil, 0)

	var msgs []string
	for _, r := range s.recs {
		msgs = append(msgs, r.Message)
	}
	wantStrict := "Enable Strict mode to block mem attacks"
	wantHealth := "Health low - investigate violations"
	if !contains(msgs, wantStrict) {
		t.Errorf("missing %q in %v", wantStrict, msgs)
	}
	if !contains(msgs, wantHealth) {
		t.Errorf("missing %q in %v", wantHealth, msgs)
	}

	// strict mode suppresses the strict-mode recommendation
	s2 := newSampler(host)
	s2.tick(now, stats, nil, FlagStrict)
	s2.tick(now.Add(TickInterval), stats, nil, FlagStrict)
	for _, r := range s2.recs {
		if r.Message == wantStrict {
			t.Error("strict-mode recommendation shown while strict is on")
		}
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestQuarantineCapture(t *testing.T) {
	now := time.Now()
	host := &fakeHost{}
	s := newSampler(host)

	recent := []AuditEntry{
		{Sequence: 1, Policy: types.PolicyResExhaust, Verdict: types.VerdictDeny, Timestamp: now},
		{Sequence: 2, Policy: types.PolicyFsDelete, Verdict: types.VerdictTransform, Timestamp: now},
		{Sequence: 3, Policy: types.PolicyProcExit, Verdict: types.VerdictAllow, Timestamp: now},
	}
	// the RES_EXHAUST deny raises a critical alert, which opens capture
	s.tick(now, Stats{}, recent, DefaultFlags)
	if !s.criticalActive() {
		t.Fatal("no critical alert active")
	}
	if got := s.quarantine.Len(); got != 2 {
		t.Fatalf("quarantined %d entries, want 2", got)
	}

	// same entries are not captured twice on the next tick
	s.tick(now.Add(TickInterval), Stats{}, recent, DefaultFlags)
	if got := s.quarantine.Len(); got != 2 {
		t.Errorf("duplicate capture: %d entries", got)
	}
}

func TestBaselineDeviation(t *testing.T) {
	now := time.Now()
	s := newSampler(&fakeHost{})

	calm := make([]AuditEntry, 0, 10)
	for i := 0; i < 10; i++ {
		calm = append(calm, AuditEntry{Policy: types.PolicyFsDelete, Verdict: types.VerdictAllow, Timestamp: now})
	}
	// below the check threshold nothing freezes
	s.tick(now, Stats{TotalChecks: 50}, calm, DefaultFlags)
	if s.baseline != nil {
		t.Fatal("baseline froze early")
	}

	s.tick(now, Stats{TotalChecks: BaselineChecks}, calm, DefaultFlags)
	if s.baseline == nil {
		t.Fatal("baseline did not freeze at threshold")
	}
	if s.deviations != 0 {
		t.Fatalf("deviations right after freeze = %d", s.deviations)
	}

	hostile := make([]AuditEntry, 0, 10)
	for i := 0; i < 10; i++ {
		hostile = append(hostile, AuditEntry{Policy: types.PolicyFsDelete, Verdict: types.VerdictDeny, Timestamp: now})
	}
	s.tick(now, Stats{TotalChecks: BaselineChecks + 10}, hostile, DefaultFlags)
	if s.deviations != 1 {
		t.Errorf("deviations = %d, want 1", s.deviations)
	}
}

func TestSidebandStableBetweenTicks(t *testing.T) {
	g, clock := newTestGovernor(t, Options{})
	clock.Advance(10 * time.Minute)
	g.Tick(clock.Now())
	before := g.Overview()

	// mutating operations between ticks do not move the sideband
	g.Evaluate(EvalRequest{Code: []byte(`killpg(0, 9);`)})
	mid := g.Overview()
	if mid.TrendStr != before.TrendStr || mid.HealthScore != before.HealthScore ||
		mid.AlertHighest != before.AlertHighest || mid.RecommendationTop != before.RecommendationTop {
		t.Error("sideband changed between ticks")
	}

	clock.Advance(TickInterval)
	g.Tick(clock.Now())
	after := g.Overview()
	if after.LastScanTime == before.LastScanTime {
		t.Error("tick did not advance the scan time")
	}
}

func TestTimelineRecordsTicks(t *testing.T) {
	g, clock := newTestGovernor(t, Options{})
	for i := 0; i < 30; i++ {
		clock.Advance(TickInterval)
		g.Tick(clock.Now())
	}
	o := g.Overview()
	if len(o.Timeline) != TimelineWindow {
		t.Errorf("timeline length = %d, want %d", len(o.Timeline), TimelineWindow)
	}
}
