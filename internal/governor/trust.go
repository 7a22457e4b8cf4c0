package governor

// TrustedMax bounds the signature store.
const TrustedMax = 64

// trustStore holds approval signatures for previously allowed code. It is a
// small bounded set; eviction is explicit via Remove (typically from a
// rollback).
type trustStore struct {
	sigs []Signature
}

func newTrustStore() *trustStore {
	return &trustStore{sigs: make([]Signature, 0, TrustedMax)}
}

// Add admits a signature, deduplicating re-approvals of identical code at
// the identical instant. Returns ErrCapacityExceeded when the store is full.
func (t *trustStore) Add(sig Signature) error {
	if t.Contains(sig) {
		return nil
	}
	if len(t.sigs) >= TrustedMax {
		return ErrCapacityExceeded
	}
	t.sigs = append(t.sigs, sig)
	return nil
}

// Contains reports membership.
func (t *trustStore) Contains(sig Signature) bool {
	for _, s := range t.sigs {
		if s == sig {
			return true
		}
	}
	return false
}

// Remove deletes sig, reporting whether it was present.
func (t *trustStore) Remove(sig Signature) bool {
	for i, s := range t.sigs {
		if s == sig {
			t.sigs[i] = t.sigs[len(t.sigs)-1]
			t.sigs = t.sigs[:len(t.sigs)-1]
			return true
		}
	}
	return false
}

// Count returns the number of stored signatures.
func (t *trustStore) Count() int {
	return len(t.sigs)
}

// List returns a copy of the stored signatures.
func (t *trustStore) List() []Signature {
	out := make([]Signature, len(t.sigs))
	copy(out, t.sigs)
	return out
}
