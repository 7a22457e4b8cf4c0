package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/phantomos/governor/internal/governor"
	"github.com/phantomos/governor/internal/types"
)

// TerminalPrompter asks the operator to approve a flagged evaluation on the
// controlling terminal. It only qualifies as a prompter when stdin is a TTY;
// NewTerminalPrompter returns nil otherwise so the governor stays headless.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTerminalPrompter returns a prompter bound to stdin/stdout, or nil when
// stdin is not a terminal.
func NewTerminalPrompter() *TerminalPrompter {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return &TerminalPrompter{in: os.Stdin, out: os.Stdout}
}

var _ governor.Prompter = (*TerminalPrompter)(nil)

// Approve presents the request and reads a yes/no answer. Anything other
// than an explicit yes declines; so does a read error.
func (p *TerminalPrompter) Approve(req *governor.EvalRequest, threat types.ThreatLevel, reasons []string) bool {
	name := req.Name
	if name == "" {
		name = req.Fingerprint.Short()
	}

	fmt.Fprintf(p.out, "\n%s approval required\n", Prefix())
	fmt.Fprint(p.out, keyValueRows([][2]string{
		{"Submission", name},
		{"Threat", ThreatBadge(threat.String())},
		{"Capabilities", req.InferredCaps.String()},
	}, "  "))
	for _, r := range reasons {
		fmt.Fprintf(p.out, "    %s %s\n", mutedText("-"), r)
	}
	fmt.Fprintf(p.out, "  Approve this evaluation? [y/N] ")

	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil {
		fmt.Fprintln(p.out)
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
