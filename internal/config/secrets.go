package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Secrets holds sensitive configuration loaded from environment variables.
// Environment variables are used instead of CLI flags because flags are
// visible in process listings.
type Secrets struct {
	// DBKey is the SQLCipher encryption key for the audit mirror database.
	// Env: GOVERNOR_DB_KEY
	DBKey string `envconfig:"GOVERNOR_DB_KEY"`

	// APIToken protects the mutating HTTP endpoints when set.
	// Env: GOVERNOR_API_TOKEN
	APIToken string `envconfig:"GOVERNOR_API_TOKEN"`
}

// LoadSecrets loads secrets from environment variables.
func LoadSecrets() (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("failed to load secrets from environment: %w", err)
	}
	return &s, nil
}

// ValidateDBKey validates the database encryption key if set.
func (s *Secrets) ValidateDBKey() error {
	if s.DBKey != "" && len(s.DBKey) < 16 {
		return errors.New("database encryption key must be at least 16 characters")
	}
	return nil
}

// HasDBEncryption returns true if database encryption is configured.
func (s *Secrets) HasDBEncryption() bool {
	return s.DBKey != ""
}

// MaskAPIToken returns a masked form of the API token for logging.
func (s *Secrets) MaskAPIToken() string {
	if s.APIToken == "" {
		return "(not set)"
	}
	if len(s.APIToken) <= 8 {
		return "****"
	}
	return s.APIToken[:4] + "****" + s.APIToken[len(s.APIToken)-4:]
}
