package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/phantomos/governor/internal/logger"
	"github.com/phantomos/governor/internal/types"
)

var log = logger.New("scan")

// patternFile is the YAML schema for user-supplied pattern additions.
type patternFile struct {
	Destructive []DestructivePattern `yaml:"destructive"`
	Capability  []struct {
		Lexeme string   `yaml:"lexeme"`
		Caps   []string `yaml:"caps"`
	} `yaml:"capabilities"`
}

// Loader reads user pattern files from a directory. User patterns extend the
// builtin tables; they can never remove builtin entries.
type Loader struct {
	userDir string
}

// NewLoader creates a loader over the given pattern directory. An empty
// directory string disables user patterns.
func NewLoader(userDir string) *Loader {
	return &Loader{userDir: userDir}
}

// UserDir returns the configured pattern directory.
func (l *Loader) UserDir() string {
	return l.userDir
}

// Load reads every .yaml file in the pattern directory. Bad files are
// skipped with a warning so one malformed file cannot disable the rest.
func (l *Loader) Load() (Tables, error) {
	var t Tables
	if l.userDir == "" {
		return t, nil
	}

	entries, err := os.ReadDir(l.userDir)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, fmt.Errorf("failed to read pattern directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(l.userDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Failed to read pattern file %s: %v", path, err)
			continue
		}
		parsed, err := parsePatternFile(data)
		if err != nil {
			log.Warn("Failed to parse pattern file %s: %v", path, err)
			continue
		}
		t.Destructive = append(t.Destructive, parsed.Destructive...)
		t.Capability = append(t.Capability, parsed.Capability...)
	}

	return t, nil
}

// parsePatternFile parses and validates one pattern YAML document.
func parsePatternFile(data []byte) (Tables, error) {
	var t Tables
	var pf patternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return t, err
	}

	for i, p := range pf.Destructive {
		if err := sanitizeLexeme(p.Lexeme); err != nil {
			return t, fmt.Errorf("destructive[%d]: %w", i, err)
		}
		if p.Description == "" {
			p.Description = "user-defined destructive pattern"
		}
		t.Destructive = append(t.Destructive, p)
	}

	for i, c := range pf.Capability {
		if err := sanitizeLexeme(c.Lexeme); err != nil {
			return t, fmt.Errorf("capabilities[%d]: %w", i, err)
		}
		mask := types.ParseCapabilities(strings.Join(c.Caps, ","))
		if mask == types.CapNone {
			return t, fmt.Errorf("capabilities[%d] %q: no recognized capability names", i, c.Lexeme)
		}
		t.Capability = append(t.Capability, CapabilityPattern{Lexeme: c.Lexeme, Caps: mask})
	}

	return t, nil
}

// sanitizeLexeme rejects empty lexemes and lexemes containing null bytes or
// control characters.
func sanitizeLexeme(lexeme string) error {
	if lexeme == "" {
		return fmt.Errorf("lexeme must not be empty")
	}
	for i := 0; i < len(lexeme); i++ {
		if lexeme[i] == 0 {
			return fmt.Errorf("lexeme contains null byte at position %d", i)
		}
		if lexeme[i] < 0x20 && lexeme[i] != '\t' {
			return fmt.Errorf("lexeme contains control character 0x%02x at position %d", lexeme[i], i)
		}
	}
	return nil
}

// Analyzer combines the builtin tables with hot-reloadable user patterns and
// exposes the scan entry points. Scan and Behavior take a snapshot of the
// merged tables under a read lock, then run lock-free.
type Analyzer struct {
	mu     sync.RWMutex
	user   Tables
	loader *Loader
}

// NewAnalyzer creates an analyzer and performs the initial user-pattern load.
func NewAnalyzer(userDir string) (*Analyzer, error) {
	a := &Analyzer{loader: NewLoader(userDir)}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload re-reads the user pattern directory and swaps the merged tables.
func (a *Analyzer) Reload() error {
	user, err := a.loader.Load()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.user = user
	a.mu.Unlock()
	if n := len(user.Destructive) + len(user.Capability); n > 0 {
		log.Info("Loaded %d user patterns (%d destructive, %d capability)",
			n, len(user.Destructive), len(user.Capability))
	}
	return nil
}

// Loader returns the underlying pattern loader.
func (a *Analyzer) Loader() *Loader {
	return a.loader
}

// Tables returns a snapshot of the merged builtin plus user tables. The
// returned slices must not be mutated.
func (a *Analyzer) Tables() Tables {
	builtin := BuiltinTables()
	a.mu.RLock()
	user := a.user
	a.mu.RUnlock()
	if len(user.Destructive) == 0 && len(user.Capability) == 0 {
		return builtin
	}
	merged := Tables{
		Destructive: make([]DestructivePattern, 0, len(builtin.Destructive)+len(user.Destructive)),
		Capability:  make([]CapabilityPattern, 0, len(builtin.Capability)+len(user.Capability)),
	}
	merged.Destructive = append(merged.Destructive, builtin.Destructive...)
	merged.Destructive = append(merged.Destructive, user.Destructive...)
	merged.Capability = append(merged.Capability, builtin.Capability...)
	merged.Capability = append(merged.Capability, user.Capability...)
	return merged
}

// Scan runs the static pattern scan with the current tables.
func (a *Analyzer) Scan(code []byte) Result {
	return Scan(code, a.Tables())
}

// Behavior runs the behavioral detectors with the current tables.
func (a *Analyzer) Behavior(code []byte) BehaviorResult {
	return AnalyzeBehavior(code, a.Tables())
}

// PatternCounts reports the merged table sizes, for stats output.
func (a *Analyzer) PatternCounts() (destructive, capability int) {
	t := a.Tables()
	return len(t.Destructive), len(t.Capability)
}
