package governor

import (
	"strings"

	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/types"
)

// Prompter asks the user to approve one evaluation. Implementations that
// cannot block must not be installed; a nil Prompter means headless.
type Prompter interface {
	// Approve presents the request and its threat summary and returns the
	// user's choice.
	Approve(req *EvalRequest, threat types.ThreatLevel, reasons []string) bool
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(req *EvalRequest, threat types.ThreatLevel, reasons []string) bool

// Approve implements Prompter.
func (f PrompterFunc) Approve(req *EvalRequest, threat types.ThreatLevel, reasons []string) bool {
	return f(req, threat, reasons)
}

// decision is the decision engine's raw output before response assembly.
type decision struct {
	verdict  types.Verdict
	by       types.DecisionBy
	summary  string
	prompted bool
}

// decide maps a threat level through the mode table. Interactive prompting
// only applies when the flag is set and a prompter is installed; a headless
// governor treats the interactive rows as non-interactive.
func decide(req *EvalRequest, threat types.ThreatLevel, flags Flags, prompter Prompter) decision {
	interactive := flags.Has(FlagInteractive) && prompter != nil

	switch {
	case threat == types.ThreatCritical:
		return decision{types.VerdictDeny, types.DecisionAutoPolicy, "destructive operation declined", false}

	case threat <= types.ThreatLow:
		return decision{types.VerdictAllow, types.DecisionAuto, "no significant risk detected", false}

	case flags.Has(FlagStrict):
		return decision{types.VerdictDeny, types.DecisionStrictPolicy, "declined by strict policy", false}

	case interactive:
		if prompter.Approve(req, threat, req.ThreatReasons) {
			return decision{types.VerdictAllow, types.DecisionUser, "approved by user", true}
		}
		return decision{types.VerdictDeny, types.DecisionUser, "declined by user", true}

	case threat == types.ThreatMedium:
		return decision{types.VerdictAllow, types.DecisionAuto, "moderate risk, auto-approved", false}

	default: // High, headless
		return decision{types.VerdictDeny, types.DecisionAutoPolicy, "needs interactive approval", false}
	}
}

// alternativeFor suggests a preservation-equivalent operation for a declined
// destructive pattern. Empty when no equivalent exists.
func alternativeFor(res scan.Result) string {
	lex := strings.ToLower(res.Lexeme)
	switch {
	case strings.Contains(lex, "unlink"), strings.Contains(lex, "remove"),
		strings.Contains(lex, "rmdir"), strings.HasPrefix(lex, "rm "),
		strings.HasPrefix(lex, "rm\""), strings.HasPrefix(lex, "rm'"),
		strings.Contains(lex, "shred"), strings.Contains(lex, "drop "):
		return "hide the target instead of deleting it (phantom hide preserves the data)"
	case strings.Contains(lex, "truncate"), strings.Contains(lex, "bzero"),
		strings.Contains(lex, "dd if="), strings.Contains(lex, "/dev/"):
		return "write a new version instead of overwriting in place"
	case strings.Contains(lex, "kill"), strings.Contains(lex, "abort"):
		return "suspend the process instead of killing it"
	case strings.Contains(lex, "format"), strings.Contains(lex, "mkfs"):
		return "create a new volume instead of reformatting"
	case strings.Contains(lex, "delete from"):
		return "mark rows hidden instead of deleting them"
	case strings.Contains(lex, "reboot"), strings.Contains(lex, "shutdown"),
		strings.Contains(lex, "halt"), strings.Contains(lex, "poweroff"):
		return "request a governed shutdown through the session manager"
	}
	return ""
}
