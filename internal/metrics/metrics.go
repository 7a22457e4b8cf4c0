// Package metrics exposes governor counters as Prometheus metrics. A single
// collector reads a stats snapshot on scrape, so the governor carries no
// instrumentation of its own.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/phantomos/governor/internal/governor"
	"github.com/phantomos/governor/internal/types"
)

// Collector adapts a Governor to the prometheus.Collector interface.
type Collector struct {
	gov *governor.Governor

	evaluations *prometheus.Desc
	checks      *prometheus.Desc
	verdicts    *prometheus.Desc
	decisions   *prometheus.Desc
	threats     *prometheus.Desc
	violations  *prometheus.Desc
	cacheOps    *prometheus.Desc
	cacheUsed   *prometheus.Desc
	trusted     *prometheus.Desc
	scopes      *prometheus.Desc
	health      *prometheus.Desc
	uptime      *prometheus.Desc
}

// NewCollector builds the collector for one governor.
func NewCollector(gov *governor.Governor) *Collector {
	return &Collector{
		gov: gov,
		evaluations: prometheus.NewDesc("governor_evaluations_total",
			"Code evaluations completed.", nil, nil),
		checks: prometheus.NewDesc("governor_checks_total",
			"Evaluations plus policy callouts.", nil, nil),
		verdicts: prometheus.NewDesc("governor_verdicts_total",
			"Decisions by verdict.", []string{"verdict"}, nil),
		decisions: prometheus.NewDesc("governor_decisions_total",
			"Decisions by maker and outcome.", []string{"maker", "outcome"}, nil),
		threats: prometheus.NewDesc("governor_threat_levels_total",
			"Evaluations by assessed threat level.", []string{"level"}, nil),
		violations: prometheus.NewDesc("governor_violations_total",
			"Denied or transformed operations by domain.", []string{"domain"}, nil),
		cacheOps: prometheus.NewDesc("governor_cache_lookups_total",
			"Evaluation cache lookups by result.", []string{"result"}, nil),
		cacheUsed: prometheus.NewDesc("governor_cache_entries",
			"Live evaluation cache entries.", nil, nil),
		trusted: prometheus.NewDesc("governor_trusted_signatures",
			"Signatures in the trusted store.", nil, nil),
		scopes: prometheus.NewDesc("governor_scopes",
			"Entries in the scope table.", nil, nil),
		health: prometheus.NewDesc("governor_health_score",
			"Sampler health score, 0 to 100.", nil, nil),
		uptime: prometheus.NewDesc("governor_uptime_seconds",
			"Seconds since the governor started.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.evaluations
	ch <- c.checks
	ch <- c.verdicts
	ch <- c.decisions
	ch <- c.threats
	ch <- c.violations
	ch <- c.cacheOps
	ch <- c.cacheUsed
	ch <- c.trusted
	ch <- c.scopes
	ch <- c.health
	ch <- c.uptime
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.gov.Stats()
	o := c.gov.Overview()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(c.evaluations, s.TotalEvaluations)
	counter(c.checks, s.TotalChecks)

	counter(c.verdicts, s.Allowed, "allow")
	counter(c.verdicts, s.Denied, "deny")
	counter(c.verdicts, s.Transformed, "transform")

	counter(c.decisions, s.AutoApproved, "auto", "approved")
	counter(c.decisions, s.UserApproved, "user", "approved")
	counter(c.decisions, s.AutoDeclined, "auto", "declined")
	counter(c.decisions, s.UserDeclined, "user", "declined")

	for level := types.ThreatNone; level <= types.ThreatCritical; level++ {
		counter(c.threats, s.ThreatCounts[level], level.String())
	}
	for _, domain := range []types.Domain{
		types.DomainMemory, types.DomainProcess,
		types.DomainFilesystem, types.DomainResource,
	} {
		counter(c.violations, s.Violations[domain], string(domain))
	}

	counter(c.cacheOps, s.CacheHits, "hit")
	counter(c.cacheOps, s.CacheMisses, "miss")
	gauge(c.cacheUsed, float64(s.CacheUsed))
	gauge(c.trusted, float64(s.TrustedCount))
	gauge(c.scopes, float64(s.ScopeCount))
	gauge(c.health, float64(o.HealthScore))
	gauge(c.uptime, float64(s.UptimeSeconds))
}

// Register installs the collector on a registry and returns the registry for
// the HTTP handler.
func Register(gov *governor.Governor) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(gov))
	return reg
}
