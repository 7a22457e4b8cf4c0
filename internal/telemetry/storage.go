// Package telemetry mirrors the governor's in-memory audit ring into a
// durable SQLite database, optionally encrypted with SQLCipher, and exports
// it as compressed JSON lines.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mutecomm/go-sqlcipher/v4" // SQLCipher driver for encrypted SQLite

	"github.com/phantomos/governor/internal/governor"
	"github.com/phantomos/governor/internal/logger"
	"github.com/phantomos/governor/internal/types"
)

var log = logger.New("telemetry")

// MinEncryptionKeyLength is the minimum required length for encryption keys.
const MinEncryptionKeyLength = 16

// Storage handles the audit mirror database.
type Storage struct {
	conn      *sql.DB
	encrypted bool
}

// NewStorage opens (and if needed creates) the mirror database. The
// encryption key goes through a connection-string parameter, never a PRAGMA
// statement built from user input.
func NewStorage(dbPath string, encryptionKey string) (*Storage, error) {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")

	if encryptionKey != "" {
		if len(encryptionKey) < MinEncryptionKeyLength {
			return nil, fmt.Errorf("encryption key must be at least %d characters", MinEncryptionKeyLength)
		}
		params.Set("_pragma_key", encryptionKey)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection serializes
	// access at the Go level and avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	encrypted := false
	if encryptionKey != "" {
		var result int
		if err := conn.QueryRowContext(context.Background(), "SELECT 1").Scan(&result); err != nil {
			conn.Close()
			return nil, fmt.Errorf("encryption key verification failed: %w", err)
		}
		encrypted = true
		log.Info("audit mirror encryption enabled")
	}

	s := &Storage{conn: conn, encrypted: encrypted}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// IsEncrypted returns whether the database is encrypted.
func (s *Storage) IsEncrypted() bool {
	return s.encrypted
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.conn.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence INTEGER NOT NULL DEFAULT 0,
	trace_id TEXT,
	fingerprint TEXT NOT NULL,
	name TEXT,
	policy TEXT NOT NULL,
	verdict TEXT NOT NULL,
	threat_level INTEGER NOT NULL DEFAULT 0,
	granted_caps INTEGER NOT NULL DEFAULT 0,
	decision_by TEXT NOT NULL,
	summary TEXT,
	pid INTEGER NOT NULL DEFAULT 0,
	timestamp DATETIME NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_fingerprint ON audit_entries(fingerprint);
CREATE INDEX IF NOT EXISTS idx_audit_policy ON audit_entries(policy);
CREATE INDEX IF NOT EXISTS idx_audit_verdict ON audit_entries(verdict);
`

func (s *Storage) initSchema() error {
	_, err := s.conn.ExecContext(context.Background(), schema)
	return err
}

// StoredEntry is one mirrored audit record as read back from the database.
type StoredEntry struct {
	ID          int64             `json:"id"`
	Sequence    uint64            `json:"sequence"`
	TraceID     string            `json:"trace_id,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	Name        string            `json:"name,omitempty"`
	Policy      types.Policy      `json:"policy"`
	Verdict     types.Verdict     `json:"verdict"`
	Threat      types.ThreatLevel `json:"threat_level"`
	GrantedCaps uint32            `json:"granted_caps"`
	DecisionBy  types.DecisionBy  `json:"decision_by"`
	Summary     string            `json:"summary,omitempty"`
	PID         uint32            `json:"pid,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Insert mirrors one audit entry.
func (s *Storage) Insert(e governor.AuditEntry) error {
	_, err := s.conn.ExecContext(context.Background(), `
		INSERT INTO audit_entries
			(sequence, trace_id, fingerprint, name, policy, verdict,
			 threat_level, granted_caps, decision_by, summary, pid, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(e.Sequence), e.TraceID, e.Fingerprint.String(), e.Name,
		string(e.Policy), string(e.Verdict), int(e.Threat),
		int64(uint32(e.GrantedCaps)), string(e.DecisionBy), e.Summary,
		int64(e.PID), e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// MaxRecentMinutes is the maximum time window for recent queries (7 days).
const MaxRecentMinutes = 10080

// GetRecent returns recent entries, newest first.
func (s *Storage) GetRecent(minutes int, limit int) ([]StoredEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if minutes <= 0 {
		minutes = 60
	} else if minutes > MaxRecentMinutes {
		minutes = MaxRecentMinutes
	}

	rows, err := s.conn.QueryContext(context.Background(), `
		SELECT id, sequence, trace_id, fingerprint, name, policy, verdict,
		       threat_level, granted_caps, decision_by, summary, pid, timestamp
		FROM audit_entries
		WHERE timestamp > datetime('now', ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		fmt.Sprintf("-%d minutes", minutes), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByFingerprint returns all mirrored entries for one fingerprint, newest
// first.
func (s *Storage) GetByFingerprint(fingerprint string, limit int) ([]StoredEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.QueryContext(context.Background(), `
		SELECT id, sequence, trace_id, fingerprint, name, policy, verdict,
		       threat_level, granted_caps, decision_by, summary, pid, timestamp
		FROM audit_entries
		WHERE fingerprint = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		fingerprint, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query by fingerprint: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]StoredEntry, error) {
	var out []StoredEntry
	for rows.Next() {
		var e StoredEntry
		var seq, caps, pid int64
		var threat int
		var policy, verdict, decisionBy string
		if err := rows.Scan(
			&e.ID, &seq, &e.TraceID, &e.Fingerprint, &e.Name,
			&policy, &verdict, &threat, &caps, &decisionBy,
			&e.Summary, &pid, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.Sequence = uint64(seq)
		e.Policy = types.Policy(policy)
		e.Verdict = types.Verdict(verdict)
		e.Threat = types.ThreatLevel(threat)
		e.GrantedCaps = uint32(caps)
		e.DecisionBy = types.DecisionBy(decisionBy)
		e.PID = uint32(pid)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PolicyCount is an aggregate row of verdict counts for one policy.
type PolicyCount struct {
	Policy      types.Policy `json:"policy"`
	Total       int64        `json:"total"`
	Denied      int64        `json:"denied"`
	Transformed int64        `json:"transformed"`
}

// CountByPolicy aggregates verdicts per policy tag over the whole mirror.
func (s *Storage) CountByPolicy() ([]PolicyCount, error) {
	rows, err := s.conn.QueryContext(context.Background(), `
		SELECT policy,
		       COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN verdict = 'DENY' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN verdict = 'TRANSFORM' THEN 1 ELSE 0 END), 0)
		FROM audit_entries
		GROUP BY policy
		ORDER BY total DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by policy: %w", err)
	}
	defer rows.Close()

	var out []PolicyCount
	for rows.Next() {
		var c PolicyCount
		var policy string
		if err := rows.Scan(&policy, &c.Total, &c.Denied, &c.Transformed); err != nil {
			return nil, fmt.Errorf("failed to scan policy count: %w", err)
		}
		c.Policy = types.Policy(policy)
		out = append(out, c)
	}
	return out, rows.Err()
}

// MaxRetentionDays caps the cleanup window.
const MaxRetentionDays = 36500

// CleanupOldData deletes entries older than the given number of days and
// returns the number removed. Zero days means keep forever.
func (s *Storage) CleanupOldData(days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	if days > MaxRetentionDays {
		days = MaxRetentionDays
	}
	result, err := s.conn.ExecContext(context.Background(),
		`DELETE FROM audit_entries WHERE timestamp < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Info("cleaned up %d old audit entries (retention: %d days)", deleted, days)
	}
	return deleted, nil
}
