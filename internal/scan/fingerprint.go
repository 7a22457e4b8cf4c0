// Package scan implements the static analysis front-end of the Governor:
// content fingerprinting, destructive-pattern and capability scanning, and
// behavioral heuristics. Everything here is a pure function of the submitted
// bytes plus the active pattern tables; nothing blocks or touches I/O.
package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// FingerprintSize is the byte length of a content fingerprint.
const FingerprintSize = sha256.Size

// Fingerprint is the SHA-256 digest of a code submission. Byte equality
// defines identity for the cache, the audit log, rollback, and signature
// derivation.
type Fingerprint [FingerprintSize]byte

// FingerprintOf computes the fingerprint of the raw code bytes.
func FingerprintOf(code []byte) Fingerprint {
	return sha256.Sum256(code)
}

// String returns the lowercase hex encoding of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 8 hex characters, for log lines and summaries.
func (f Fingerprint) Short() string {
	return hex.EncodeToString(f[:4])
}

// MarshalJSON encodes the fingerprint as a hex string.
func (f Fingerprint) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON decodes a hex string fingerprint.
func (f *Fingerprint) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("fingerprint: not a JSON string")
	}
	parsed, ok := ParseFingerprint(string(data[1 : len(data)-1]))
	if !ok {
		return errors.New("fingerprint: bad hex")
	}
	*f = parsed
	return nil
}

// ParseFingerprint decodes a 64-character hex string into a Fingerprint.
func ParseFingerprint(s string) (Fingerprint, bool) {
	var f Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != FingerprintSize {
		return f, false
	}
	copy(f[:], raw)
	return f, true
}
