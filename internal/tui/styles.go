// Package tui renders governor state for terminals: styled stats, audit
// tables, the overview panel, and the interactive approval prompt. Everything
// degrades to plain text when styling is unavailable.
package tui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// plainMode disables all styling: no colors, no icons, no boxes. Output is
// clean plain text suitable for piped output, daemons, or --no-color.
var (
	plainMode bool
	plainOnce sync.Once
	plainMu   sync.RWMutex
)

// initPlainMode auto-detects plain mode from environment on first call.
// Precedence: NO_COLOR > TTY detection.
func initPlainMode() {
	plainOnce.Do(func() {
		// NO_COLOR wins — https://no-color.org
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			plainMode = true
			return
		}
		// Not a terminal (piped, redirected, daemon) means plain mode
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			plainMode = true
		}
	})
}

// SetPlainMode explicitly enables or disables plain mode. Call this early
// (e.g. when parsing --no-color) before any output.
func SetPlainMode(plain bool) {
	plainMu.Lock()
	defer plainMu.Unlock()
	plainMode = plain
	// Mark as initialized so auto-detect doesn't override
	plainOnce.Do(func() {})
}

// IsPlainMode returns true if styling is disabled.
func IsPlainMode() bool {
	initPlainMode()
	plainMu.RLock()
	defer plainMu.RUnlock()
	return plainMode
}

// Color palette — cool spectral tones for the phantom theme. Adapts to OS theme.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#4C3A8C", Dark: "#8C7AE6"} // Spectral Violet
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#2C6E8A", Dark: "#6BC5E8"} // Ghost Cyan
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#3A7A52", Dark: "#6BCB8F"} // Preserved Green
	ColorError   = lipgloss.AdaptiveColor{Light: "#A83244", Dark: "#E85A72"} // Violation Red
	ColorWarning = lipgloss.AdaptiveColor{Light: "#9A7B1A", Dark: "#E8C94A"} // Caution Gold
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#2C6E8A", Dark: "#8FD4ED"} // Pale Cyan
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#8A8FA3"} // Cool Gray
	ColorHigh    = lipgloss.AdaptiveColor{Light: "#A0522D", Dark: "#E8914A"} // Ember Orange
)

// Reusable styles.
var (
	StyleTitle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleSuccess  = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError    = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning  = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo     = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted    = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold     = lipgloss.NewStyle().Bold(true)

	// Branded prefix: [governor] (unexported — use Prefix() instead)
	stylePrefix = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// Box style for panels
	StyleBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 2)

	// Threat badge styles
	StyleCritical = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	StyleHigh     = lipgloss.NewStyle().Foreground(ColorHigh)
	StyleMedium  = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleLow      = lipgloss.NewStyle().Foreground(ColorInfo)
)

// Prefix returns the branded [governor] prefix string.
func Prefix() string {
	if IsPlainMode() {
		return "[governor]"
	}
	return stylePrefix.Render("[governor]")
}

// ThreatStyle returns the style for a threat level name.
func ThreatStyle(level string) lipgloss.Style {
	switch level {
	case "Critical":
		return StyleCritical
	case "High":
		return StyleHigh
	case "Medium":
		return StyleMedium
	case "Low":
		return StyleLow
	default:
		return StyleMuted
	}
}

// ThreatBadge returns a styled threat badge like "■ Critical".
func ThreatBadge(level string) string {
	if IsPlainMode() {
		return "[" + level + "]"
	}
	return ThreatStyle(level).Render(IconSquare + " " + level)
}

// VerdictBadge renders a verdict with its outcome color.
func VerdictBadge(verdict string) string {
	if IsPlainMode() {
		return "[" + verdict + "]"
	}
	switch verdict {
	case "ALLOW", "AUDIT":
		return StyleSuccess.Render(IconCheck + " " + verdict)
	case "DENY":
		return StyleError.Render(IconBlock + " " + verdict)
	case "TRANSFORM":
		return StyleWarning.Render(IconShift + " " + verdict)
	default:
		return StyleMuted.Render(verdict)
	}
}

// SeverityStyle returns the style for an alert severity name.
func SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "critical":
		return StyleCritical
	case "warning":
		return StyleWarning
	default:
		return StyleInfo
	}
}

// Separator returns a section separator bar with an optional title.
func Separator(title string) string {
	if IsPlainMode() {
		if title == "" {
			return "---"
		}
		return "--- " + title + " ---"
	}
	trail := gradientTrail("━", 24, "#8C7AE6", "#2A2438")
	if title == "" {
		return trail
	}
	return StyleBold.Render(title) + " " + trail
}
