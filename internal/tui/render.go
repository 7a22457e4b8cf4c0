package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/phantomos/governor/internal/governor"
	"github.com/phantomos/governor/internal/types"
)

// keyValueRows renders aligned key/value lines. Left column pads to the
// widest key; lipgloss.Width handles ANSI escapes in styled text.
func keyValueRows(rows [][2]string, indent string) string {
	maxWidth := 0
	for _, row := range rows {
		if w := lipgloss.Width(row[0]); w > maxWidth {
			maxWidth = w
		}
	}
	var b strings.Builder
	for _, row := range rows {
		pad := maxWidth - lipgloss.Width(row[0])
		b.WriteString(indent)
		if IsPlainMode() {
			b.WriteString(row[0])
		} else {
			b.WriteString(StyleMuted.Render(row[0]))
		}
		b.WriteString(strings.Repeat(" ", pad+2))
		b.WriteString(row[1])
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderResponse formats one evaluation outcome for the terminal.
func RenderResponse(resp governor.EvalResponse) string {
	rows := [][2]string{
		{"Verdict", VerdictBadge(string(resp.Verdict))},
		{"Threat", ThreatBadge(resp.Threat.String())},
		{"Decided by", string(resp.DecisionBy)},
		{"Summary", resp.Summary},
	}
	if resp.Reasoning != "" {
		rows = append(rows, [2]string{"Reasoning", resp.Reasoning})
	}
	if resp.Alternative != "" {
		rows = append(rows, [2]string{"Alternative", resp.Alternative})
	}
	if !resp.Signature.IsZero() {
		rows = append(rows, [2]string{"Signature", resp.Signature.String()})
		rows = append(rows, [2]string{"Granted", resp.GrantedCaps.String()})
	}
	if !resp.ValidUntil.IsZero() {
		rows = append(rows, [2]string{"Valid until", resp.ValidUntil.Format(time.RFC3339)})
	}
	if resp.TraceID != "" {
		rows = append(rows, [2]string{"Trace", resp.TraceID})
	}
	return keyValueRows(rows, "  ")
}

// RenderStats formats a stats snapshot.
func RenderStats(s governor.Stats) string {
	var b strings.Builder
	b.WriteString(Separator("Governor Stats"))
	b.WriteByte('\n')

	b.WriteString(keyValueRows([][2]string{
		{"Uptime", (time.Duration(s.UptimeSeconds) * time.Second).String()},
		{"Evaluations", fmt.Sprintf("%d", s.TotalEvaluations)},
		{"Total checks", fmt.Sprintf("%d", s.TotalChecks)},
		{"Allowed", fmt.Sprintf("%d", s.Allowed)},
		{"Denied", fmt.Sprintf("%d", s.Denied)},
		{"Transformed", fmt.Sprintf("%d", s.Transformed)},
		{"User approved", fmt.Sprintf("%d", s.UserApproved)},
		{"User declined", fmt.Sprintf("%d", s.UserDeclined)},
		{"Cache", fmt.Sprintf("%d hits / %d misses / %d live", s.CacheHits, s.CacheMisses, s.CacheUsed)},
		{"Trusted", fmt.Sprintf("%d signatures", s.TrustedCount)},
		{"Scopes", fmt.Sprintf("%d", s.ScopeCount)},
		{"Audit", fmt.Sprintf("%d entries, %d evaluations", s.AuditCount, s.HistoryCount)},
	}, "  "))

	if len(s.Violations) > 0 {
		b.WriteString(Separator("Violations"))
		b.WriteByte('\n')
		rows := make([][2]string, 0, len(s.Violations))
		for _, d := range []types.Domain{
			types.DomainMemory, types.DomainProcess,
			types.DomainFilesystem, types.DomainResource,
		} {
			if n, ok := s.Violations[d]; ok {
				rows = append(rows, [2]string{string(d), fmt.Sprintf("%d", n)})
			}
		}
		b.WriteString(keyValueRows(rows, "  "))
	}
	return b.String()
}

// RenderAudit formats audit entries newest first, one line each.
func RenderAudit(entries []governor.AuditEntry) string {
	if len(entries) == 0 {
		return "  (no audit entries)\n"
	}
	var b strings.Builder
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = e.Fingerprint.Short()
		}
		line := fmt.Sprintf("  #%-4d %s  %-10s %-22s %s",
			e.Sequence,
			e.Timestamp.Format("15:04:05"),
			VerdictBadge(string(e.Verdict)),
			string(e.Policy),
			name)
		if e.Summary != "" {
			line += "  " + mutedText(e.Summary)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderScopes formats the scope table.
func RenderScopes(scopes []governor.Scope) string {
	if len(scopes) == 0 {
		return "  (no scopes)\n"
	}
	rows := make([][2]string, 0, len(scopes))
	for _, s := range scopes {
		detail := fmt.Sprintf("%s on %s", s.Caps.String(), s.PathGlob)
		if s.MaxBytes > 0 {
			detail += fmt.Sprintf(" (max %d bytes)", s.MaxBytes)
		}
		if !s.ValidUntil.IsZero() {
			detail += " until " + s.ValidUntil.Format(time.RFC3339)
		}
		if !s.Active {
			detail += " [expired]"
		}
		rows = append(rows, [2]string{s.ID, detail})
	}
	return keyValueRows(rows, "  ")
}

// timelineGlyphs maps threat levels to sparkline characters, None to Critical.
var timelineGlyphs = []string{"▁", "▂", "▄", "▆", "█"}

// Sparkline renders the tick timeline as a threat-level sparkline, oldest
// first.
func Sparkline(timeline []governor.TimelineSlot) string {
	if len(timeline) == 0 {
		return ""
	}
	var b strings.Builder
	// Timeline arrives newest first; draw left to right in time order.
	for i := len(timeline) - 1; i >= 0; i-- {
		slot := timeline[i]
		level := int(slot.Threat)
		if level < 0 || level >= len(timelineGlyphs) {
			level = 0
		}
		glyph := timelineGlyphs[level]
		if IsPlainMode() {
			b.WriteString(glyph)
			continue
		}
		b.WriteString(ThreatStyle(slot.Threat.String()).Render(glyph))
	}
	return b.String()
}

// RenderOverview formats the sideband panel: health, trend, timeline,
// alerts, recommendations, and quarantined entries.
func RenderOverview(o governor.Overview) string {
	var b strings.Builder
	b.WriteString(Separator("Governor Overview"))
	b.WriteByte('\n')

	health := fmt.Sprintf("%d/100", o.HealthScore)
	if !IsPlainMode() {
		switch {
		case o.HealthScore >= 70:
			health = StyleSuccess.Render(health)
		case o.HealthScore >= 40:
			health = StyleWarning.Render(health)
		default:
			health = StyleError.Render(health)
		}
	}

	rows := [][2]string{
		{"Health", health},
		{"Threat", ThreatBadge(o.ThreatStr)},
		{"Trend", o.TrendStr},
		{"Flags", o.Flags},
	}
	if o.BaselineActive {
		rows = append(rows, [2]string{"Baseline", fmt.Sprintf("active, %d deviations", o.Deviations)})
	}
	if !o.LastScanTime.IsZero() {
		rows = append(rows, [2]string{"Last scan", o.LastScanTime.Format("15:04:05")})
	}
	b.WriteString(keyValueRows(rows, "  "))

	if spark := Sparkline(o.Timeline); spark != "" {
		b.WriteString("  Timeline  " + spark + "\n")
	}

	if len(o.Alerts) > 0 {
		b.WriteString(Separator("Alerts"))
		b.WriteByte('\n')
		for _, a := range o.Alerts {
			sev := a.Severity.String()
			if IsPlainMode() {
				fmt.Fprintf(&b, "  [%s] %s\n", strings.ToUpper(sev), a.Message)
			} else {
				fmt.Fprintf(&b, "  %s %s\n", SeverityStyle(sev).Render(IconWarning+" "+strings.ToUpper(sev)), a.Message)
			}
		}
	}

	if len(o.Recommendations) > 0 {
		b.WriteString(Separator("Recommendations"))
		b.WriteByte('\n')
		for _, r := range o.Recommendations {
			fmt.Fprintf(&b, "  %s %s\n", mutedText(fmt.Sprintf("P%d", r.Priority)), r.Message)
		}
	}

	if len(o.Quarantine) > 0 {
		b.WriteString(Separator("Quarantine"))
		b.WriteByte('\n')
		b.WriteString(RenderAudit(o.Quarantine))
	}

	return b.String()
}

func mutedText(s string) string {
	if IsPlainMode() {
		return s
	}
	return StyleMuted.Render(s)
}
