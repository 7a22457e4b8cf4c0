package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phantomos/governor/internal/logger"
	"github.com/phantomos/governor/internal/types"
)

var cfgLog = logger.New("config")

// Config is the governor daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Governor  GovernorConfig  `yaml:"governor"`
	Patterns  PatternsConfig  `yaml:"patterns"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port     int            `yaml:"port"`
	LogLevel types.LogLevel `yaml:"log_level"`
	NoColor  bool           `yaml:"no_color"`
}

// GovernorConfig holds the policy engine mode.
type GovernorConfig struct {
	Strict      bool `yaml:"strict"`       // auto-decline Medium and High threats
	AuditAll    bool `yaml:"audit_all"`    // record every callout including Allows
	Verbose     bool `yaml:"verbose"`      // expand summary/reasoning length caps
	Interactive bool `yaml:"interactive"`  // prompt for Medium/High when a terminal is attached
	Cache       bool `yaml:"cache"`        // evaluation cache
	CacheTTL    int  `yaml:"cache_ttl"`    // cached verdict lifetime in seconds, 0 = no expiry
	// ApprovalCaps is a comma-separated capability list that escalates an
	// evaluation to Medium. Empty means the built-in default set.
	ApprovalCaps string `yaml:"approval_caps"`
}

// PatternsConfig holds the scanner pattern table settings.
type PatternsConfig struct {
	UserDir string `yaml:"user_dir"` // directory for user pattern files (default: ~/.phantomos/patterns.d)
	Watch   bool   `yaml:"watch"`    // hot-reload pattern files on change
}

// StorageConfig holds the audit mirror database settings.
type StorageConfig struct {
	DBPath        string `yaml:"db_path"`
	EncryptionKey string `yaml:"encryption_key"` // SQLCipher key (empty = no encryption)
}

// TelemetryConfig holds the durable audit mirror settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RetentionDays int    `yaml:"retention_days"` // 0 = forever
	ExportDir     string `yaml:"export_dir"`     // destination for compressed audit exports
}

// DefaultConfigPath returns the default config file path
// (~/.phantomos/governor.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "governor.yaml"
	}
	return filepath.Join(home, ".phantomos", "governor.yaml")
}

// DefaultPatternDir returns the default user pattern directory.
func DefaultPatternDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "patterns.d"
	}
	return filepath.Join(home, ".phantomos", "patterns.d")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./governor.db"
	}
	return filepath.Join(home, ".phantomos", "governor.db")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     9474,
			LogLevel: types.LogLevelInfo,
		},
		Governor: GovernorConfig{
			Cache: true,
		},
		Patterns: PatternsConfig{
			UserDir: "", // empty means DefaultPatternDir
			Watch:   true,
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			RetentionDays: 7,
		},
	}
}

// Validate checks all Config fields and returns a multi-error report.
// Call this AFTER CLI overrides have been applied, not during Load().
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be 1-65535 (got %d)", c.Server.Port))
	}
	if !c.Server.LogLevel.Valid() {
		errs = append(errs, fmt.Sprintf("server.log_level: unknown log level %q (valid: trace, debug, info, warn, error)", c.Server.LogLevel))
	}
	if c.Governor.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("governor.cache_ttl: must be >= 0 (got %d)", c.Governor.CacheTTL))
	}
	if c.Governor.ApprovalCaps != "" {
		for _, part := range strings.Split(c.Governor.ApprovalCaps, ",") {
			if types.ParseCapability(part) == types.CapNone {
				errs = append(errs, fmt.Sprintf("governor.approval_caps: unknown capability %q", strings.TrimSpace(part)))
			}
		}
	}
	if c.Telemetry.RetentionDays < 0 || c.Telemetry.RetentionDays > 36500 {
		errs = append(errs, fmt.Sprintf("telemetry.retention_days: must be 0-36500 (got %d)", c.Telemetry.RetentionDays))
	}

	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for i, e := range errs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e)
	}
	return fmt.Errorf("%s", sb.String())
}

// isUnknownFieldError returns true if the error is from
// yaml.Decoder.KnownFields(true) detecting an unrecognized key.
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Load does NOT call Validate(); callers apply CLI overrides
// first, then validate.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if isUnknownFieldError(err) {
			cfgLog.Warn("config has unknown fields (ignored): %v", err)
			cfg = DefaultConfig()
			if err2 := yaml.Unmarshal(data, cfg); err2 != nil {
				return nil, fmt.Errorf("config parse error: %w", err2)
			}
		} else {
			return nil, fmt.Errorf("config parse error: %w", err)
		}
	}
	return cfg, nil
}
