package tui

// Icons — color is the primary signal; icon shape reinforces meaning.
const (
	IconGhost   = "◈" // ◈ — lozenge (brand marker)
	IconCheck   = "✔" // ✔ — heavy check mark (allowed)
	IconCross   = "✖" // ✖ — heavy multiplication X (error)
	IconBlock   = "⊘" // ⊘ — circled division slash (denied)
	IconShift   = "↻" // ↻ — clockwise arrow (transformed)
	IconWarning = "⚠" // ⚠ — warning sign
	IconInfo    = "ℹ" // ℹ — information source
	IconDot     = "●" // ● — filled circle (active)
	IconSquare  = "▪" // ▪ — small square (badge)
)
