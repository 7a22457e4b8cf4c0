package governor

import (
	"testing"
	"time"

	"github.com/phantomos/governor/internal/scan"
)

func TestSignDeterminism(t *testing.T) {
	fp := scan.FingerprintOf([]byte("some code"))
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	a := Sign(fp, at)
	b := Sign(fp, at)
	if a != b {
		t.Error("same inputs produced different signatures")
	}
	if a.IsZero() {
		t.Error("signature is zero")
	}
	if Sign(fp, at.Add(time.Nanosecond)) == a {
		t.Error("different approval time produced the same signature")
	}
	other := scan.FingerprintOf([]byte("other code"))
	if Sign(other, at) == a {
		t.Error("different code produced the same signature")
	}
}

func TestVerifySignatureHelper(t *testing.T) {
	fp := scan.FingerprintOf([]byte("verify me"))
	at := time.Now()
	sig := Sign(fp, at)
	if !VerifySignature(fp, at, sig) {
		t.Error("genuine signature rejected")
	}
	if VerifySignature(fp, at.Add(time.Second), sig) {
		t.Error("wrong time accepted")
	}
}

func TestSignatureParseRoundTrip(t *testing.T) {
	sig := Sign(scan.FingerprintOf([]byte("x")), time.Now())
	parsed, err := ParseSignature(sig.String())
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if parsed != sig {
		t.Error("round trip mismatch")
	}

	for _, bad := range []string{"", "zz", "not-hex-not-hex-not-hex-not-hex!"} {
		if _, err := ParseSignature(bad); err == nil {
			t.Errorf("ParseSignature(%q) accepted", bad)
		}
	}
}
