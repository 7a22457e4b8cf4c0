package governor

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/phantomos/governor/internal/scan"
)

// SignatureSize is the length in bytes of an approval signature.
const SignatureSize = 16

// Signature is the compact approval token issued for an allowed evaluation.
// It binds a code fingerprint to the approval instant, so the same code
// approved at a different time yields a different signature.
type Signature [SignatureSize]byte

// signBufLen is the fixed preimage length: the 32-byte fingerprint, the
// 8-byte little-endian approval time, and zero padding.
const signBufLen = 64

// Sign derives the approval signature for a fingerprint approved at the
// given instant: the first 16 bytes of SHA-256 over the fingerprint, the
// approval time as unsigned nanoseconds little-endian, and zero padding to
// 64 bytes.
func Sign(fp scan.Fingerprint, approvedAt time.Time) Signature {
	var buf [signBufLen]byte
	copy(buf[:32], fp[:])
	binary.LittleEndian.PutUint64(buf[32:40], uint64(approvedAt.UnixNano()))
	sum := sha256.Sum256(buf[:])

	var sig Signature
	copy(sig[:], sum[:SignatureSize])
	return sig
}

// VerifySignature reports whether sig is the signature for fp approved at
// approvedAt.
func VerifySignature(fp scan.Fingerprint, approvedAt time.Time, sig Signature) bool {
	return Sign(fp, approvedAt) == sig
}

// String returns the signature in lowercase hex.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// IsZero reports whether the signature is all zeros, the "unsigned" value.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// MarshalJSON encodes the signature as a hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a hex string signature.
func (s *Signature) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return ErrInvalidRequest
	}
	sig, err := ParseSignature(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

// ParseSignature decodes a 32-character hex string into a Signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	if len(s) != SignatureSize*2 {
		return sig, ErrInvalidRequest
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return sig, ErrInvalidRequest
	}
	copy(sig[:], raw)
	return sig, nil
}
