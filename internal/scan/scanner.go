package scan

import (
	"strings"

	"github.com/phantomos/governor/internal/types"
)

// Result is the outcome of the static pattern scan over one submission.
type Result struct {
	// Destructive is set when any destructive lexeme matched. A destructive
	// hit is always assessed Critical by the threat assessor.
	Destructive bool
	// Lexeme and Description identify the first destructive hit.
	Lexeme      string
	Description string
	// Caps is the inferred capability mask. Bits are only ever added.
	Caps types.CapabilityMask
}

// foldBytes lowercases ASCII letters in code, returning a string usable for
// case-insensitive substring search. Non-ASCII bytes pass through untouched;
// pattern lexemes are all ASCII so this folds exactly the relevant alphabet.
func foldBytes(code []byte) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, c := range code {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// indexFold reports the offset of the first case-insensitive occurrence of
// lexeme in folded (already-lowercased) text, or -1.
func indexFold(folded, lexeme string) int {
	return strings.Index(folded, strings.ToLower(lexeme))
}

// containsFold reports whether folded text contains the lexeme,
// case-insensitively.
func containsFold(folded, lexeme string) bool {
	return indexFold(folded, lexeme) >= 0
}

// Scan runs the destructive-pattern scan followed by capability inference.
// The destructive scan runs first because a hit is final for the verdict,
// but capability inference always runs so audits stay informative even for
// declined submissions.
func Scan(code []byte, tables Tables) Result {
	var res Result
	if len(code) == 0 {
		return res
	}

	folded := foldBytes(code)

	for _, p := range tables.Destructive {
		if containsFold(folded, p.Lexeme) {
			res.Destructive = true
			res.Lexeme = p.Lexeme
			res.Description = p.Description
			break
		}
	}

	for _, p := range tables.Capability {
		if containsFold(folded, p.Lexeme) {
			res.Caps |= p.Caps
		}
	}

	return res
}
