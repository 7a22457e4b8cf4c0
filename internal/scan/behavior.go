package scan

import (
	"strconv"
	"strings"
)

// BehaviorFlag marks a behavioral heuristic that fired.
type BehaviorFlag uint32

// Behavior flags.
const (
	BehaviorInfiniteLoop BehaviorFlag = 1 << iota
	BehaviorMemoryBomb
	BehaviorForkBomb
	BehaviorObfuscation
	BehaviorEncodedPayload
	BehaviorShellInjection
	BehaviorPathTraversal
	BehaviorResourceExhaust
	BehaviorLoopDestruction
)

// Detector suspicion weights. The final score saturates at 100.
const (
	weightInfiniteLoop    = 15
	weightMemoryBomb      = 25
	weightForkBomb        = 40
	weightObfuscation     = 20
	weightEncodedPayload  = 25
	weightShellInjection  = 35
	weightPathTraversal   = 20
	weightResourceExhaust = 25
	weightLoopDestruction = 50
)

// MaxBehaviorDescriptions caps how many detector descriptions are reported.
const MaxBehaviorDescriptions = 4

// maxScore is the saturation ceiling for the suspicion score.
const maxScore = 100

// BehaviorResult is the combined output of all behavioral detectors.
type BehaviorResult struct {
	Flags        BehaviorFlag
	Descriptions []string
	Score        int
}

// Has returns true if the given flag fired.
func (r BehaviorResult) Has(flag BehaviorFlag) bool {
	return r.Flags&flag != 0
}

func (r *BehaviorResult) add(flag BehaviorFlag, weight int, desc string) {
	r.Flags |= flag
	r.Score += weight
	if r.Score > maxScore {
		r.Score = maxScore
	}
	if len(r.Descriptions) < MaxBehaviorDescriptions {
		r.Descriptions = append(r.Descriptions, desc)
	}
}

var allocLexemes = []string{"malloc", "calloc", "realloc", "mmap"}
var procLexemes = []string{"fork(", "vfork", "execve", "execl", "posix_spawn", "createprocess", "spawn("}
var shellExecLexemes = []string{"system(", "popen(", "exec(", "execve", "shellexecute", "sh -c"}
var inputLexemes = []string{"gets(", "fgets", "scanf", "getline", "read(", "stdin", "argv", "getenv"}
var decodeLexemes = []string{"base64", "b64decode", "atob(", "frombase64", "decode64", "unhexlify"}

// AnalyzeBehavior runs every behavioral detector over the submission and
// returns the merged flag set, up to four descriptions, and the saturated
// suspicion score. Detection is purely lexical; the loop-context test is a
// brace-nesting heuristic, not a parser.
func AnalyzeBehavior(code []byte, tables Tables) BehaviorResult {
	var res BehaviorResult
	if len(code) == 0 {
		return res
	}

	folded := foldBytes(code)

	detectInfiniteLoop(folded, &res)
	detectMemoryBomb(folded, &res)
	detectForkBomb(folded, &res)
	detectObfuscation(folded, code, &res)
	detectEncodedPayload(folded, &res)
	detectShellInjection(folded, &res)
	detectPathTraversal(folded, &res)
	detectResourceExhaust(folded, &res)
	detectLoopDestruction(folded, tables, &res)

	return res
}

// detectInfiniteLoop flags unbounded loop headers with no break or return
// anywhere after the loop start.
func detectInfiniteLoop(folded string, res *BehaviorResult) {
	headers := []string{"while(1)", "while (1)", "while(true)", "while (true)", "for(;;)", "for (;;)"}
	for _, h := range headers {
		off := indexFold(folded, h)
		if off < 0 {
			continue
		}
		rest := folded[off:]
		if !strings.Contains(rest, "break") && !strings.Contains(rest, "return") {
			res.add(BehaviorInfiniteLoop, weightInfiniteLoop,
				"unbounded loop with no reachable break or return")
			return
		}
	}
}

// detectMemoryBomb flags allocation inside a loop with no matching release,
// or exponential-growth arithmetic adjacent to an allocation call.
func detectMemoryBomb(folded string, res *BehaviorResult) {
	hasRelease := strings.Contains(folded, "free(") || strings.Contains(folded, "munmap")
	for _, lex := range allocLexemes {
		off := indexFold(folded, lex)
		if off < 0 {
			continue
		}
		if !hasRelease && inLoopContext(folded, off) {
			res.add(BehaviorMemoryBomb, weightMemoryBomb,
				"allocation inside loop with no matching free")
			return
		}
		if growthNear(folded, off) {
			res.add(BehaviorMemoryBomb, weightMemoryBomb,
				"exponential growth arithmetic adjacent to allocation")
			return
		}
	}
}

// growthNear looks for doubling arithmetic in a small window around an
// allocation call site.
func growthNear(folded string, off int) bool {
	lo := off - 64
	if lo < 0 {
		lo = 0
	}
	hi := off + 64
	if hi > len(folded) {
		hi = len(folded)
	}
	window := folded[lo:hi]
	for _, g := range []string{"*= 2", "*=2", "* 2", "<<= 1", "<< 1", "<<1"} {
		if strings.Contains(window, g) {
			return true
		}
	}
	return false
}

// detectForkBomb flags process creation inside a loop, or repeated creation
// with no wait.
func detectForkBomb(folded string, res *BehaviorResult) {
	count := 0
	for _, lex := range procLexemes {
		start := 0
		for {
			off := strings.Index(folded[start:], lex)
			if off < 0 {
				break
			}
			off += start
			count++
			if inLoopContext(folded, off) {
				res.add(BehaviorForkBomb, weightForkBomb,
					"process creation inside a loop")
				return
			}
			start = off + len(lex)
		}
	}
	if count >= 2 && !strings.Contains(folded, "wait") {
		res.add(BehaviorForkBomb, weightForkBomb,
			"repeated process creation with no wait")
	}
}

// detectObfuscation flags very long source lines, excessive hex constants,
// or excessive XOR operations.
func detectObfuscation(folded string, code []byte, res *BehaviorResult) {
	const maxLineLen = 500
	lineStart := 0
	for i := 0; i <= len(code); i++ {
		if i == len(code) || code[i] == '\n' {
			if i-lineStart > maxLineLen {
				res.add(BehaviorObfuscation, weightObfuscation,
					"source line exceeds "+strconv.Itoa(maxLineLen)+" characters")
				return
			}
			lineStart = i + 1
		}
	}
	if strings.Count(folded, "0x") > 16 {
		res.add(BehaviorObfuscation, weightObfuscation, "excessive hex constants")
		return
	}
	if strings.Count(folded, "^=")+strings.Count(folded, " ^ ") > 8 {
		res.add(BehaviorObfuscation, weightObfuscation, "excessive XOR operations")
	}
}

// detectEncodedPayload flags long base64-like runs or known decode helpers.
func detectEncodedPayload(folded string, res *BehaviorResult) {
	const minRun = 100
	run := 0
	for i := 0; i < len(folded); i++ {
		c := folded[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '+' || c == '/' || c == '=' ||
			(c >= 'A' && c <= 'Z') {
			run++
			if run > minRun {
				res.add(BehaviorEncodedPayload, weightEncodedPayload,
					"base64-like run longer than "+strconv.Itoa(minRun)+" characters")
				return
			}
		} else {
			run = 0
		}
	}
	for _, lex := range decodeLexemes {
		if strings.Contains(folded, lex) {
			res.add(BehaviorEncodedPayload, weightEncodedPayload,
				"encoded payload decode helper present")
			return
		}
	}
}

// detectShellInjection flags shell execution combined with input reads, or
// command substitution adjacent to an exec call.
func detectShellInjection(folded string, res *BehaviorResult) {
	execOff := -1
	for _, lex := range shellExecLexemes {
		if off := strings.Index(folded, lex); off >= 0 {
			execOff = off
			break
		}
	}
	if execOff < 0 {
		return
	}
	for _, lex := range inputLexemes {
		if strings.Contains(folded, lex) {
			res.add(BehaviorShellInjection, weightShellInjection,
				"shell execution combined with external input")
			return
		}
	}
	lo := execOff - 128
	if lo < 0 {
		lo = 0
	}
	hi := execOff + 128
	if hi > len(folded) {
		hi = len(folded)
	}
	window := folded[lo:hi]
	if strings.Contains(window, "$(") || strings.Contains(window, "`") {
		res.add(BehaviorShellInjection, weightShellInjection,
			"command substitution adjacent to shell execution")
	}
}

// detectPathTraversal flags literal or percent-encoded parent-directory
// separators.
func detectPathTraversal(folded string, res *BehaviorResult) {
	for _, lex := range []string{"../", `..\`, "%2e%2e", "..%2f", "..%5c"} {
		if strings.Contains(folded, lex) {
			res.add(BehaviorPathTraversal, weightPathTraversal,
				"path traversal sequence present")
			return
		}
	}
}

// detectResourceExhaust flags gigabyte-scale literal allocations and
// open-in-loop without close.
func detectResourceExhaust(folded string, res *BehaviorResult) {
	if hasHugeLiteral(folded) {
		res.add(BehaviorResourceExhaust, weightResourceExhaust,
			"gigabyte-scale literal allocation")
		return
	}
	off := strings.Index(folded, "open(")
	if off >= 0 && inLoopContext(folded, off) && !strings.Contains(folded, "close(") {
		res.add(BehaviorResourceExhaust, weightResourceExhaust,
			"file opened in loop with no close")
	}
}

// hasHugeLiteral reports any integer literal of at least 1 GiB magnitude.
func hasHugeLiteral(folded string) bool {
	const giB = 1 << 30
	i := 0
	for i < len(folded) {
		if folded[i] < '0' || folded[i] > '9' {
			i++
			continue
		}
		j := i
		for j < len(folded) && folded[j] >= '0' && folded[j] <= '9' {
			j++
		}
		if j-i >= 10 {
			if n, err := strconv.ParseUint(folded[i:j], 10, 64); err == nil && n >= giB {
				return true
			}
		}
		i = j
	}
	// common shifted spellings
	for _, lex := range []string{"<< 30", "<<30", "1024*1024*1024", "1024 * 1024 * 1024"} {
		if strings.Contains(folded, lex) {
			return true
		}
	}
	return false
}

// detectLoopDestruction flags any destructive lexeme inside loop context.
func detectLoopDestruction(folded string, tables Tables, res *BehaviorResult) {
	for _, p := range tables.Destructive {
		off := indexFold(folded, p.Lexeme)
		if off >= 0 && inLoopContext(folded, off) {
			res.add(BehaviorLoopDestruction, weightLoopDestruction,
				"destructive operation inside a loop")
			return
		}
	}
}

// inLoopContext scans backward from off tracking brace nesting. An unmatched
// opening brace whose header (whitespace-skipping, optionally across a
// parenthesized condition) ends in a loop keyword means off sits inside a
// loop body. Purely lexical; macro expansion can fool it.
func inLoopContext(src string, off int) bool {
	depth := 0
	for i := off - 1; i >= 0; i-- {
		switch src[i] {
		case '}':
			depth++
		case '{':
			if depth > 0 {
				depth--
				continue
			}
			if loopHeaderBefore(src, i) {
				return true
			}
		}
	}
	return false
}

// loopHeaderBefore inspects the text before an opening brace for a loop
// keyword, skipping whitespace and one parenthesized condition.
func loopHeaderBefore(src string, brace int) bool {
	j := brace - 1
	for j >= 0 && isSpace(src[j]) {
		j--
	}
	if j >= 0 && src[j] == ')' {
		nest := 1
		j--
		for j >= 0 && nest > 0 {
			switch src[j] {
			case ')':
				nest++
			case '(':
				nest--
			}
			j--
		}
		for j >= 0 && isSpace(src[j]) {
			j--
		}
	}
	end := j
	for j >= 0 && isIdentChar(src[j]) {
		j--
	}
	if end < 0 || j == end {
		return false
	}
	switch src[j+1 : end+1] {
	case "for", "while", "do":
		return true
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}
