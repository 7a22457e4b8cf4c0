package governor

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/types"
)

// fpAt builds a fingerprint whose primary slot is idx.
func fpAt(idx int, salt byte) scan.Fingerprint {
	var fp scan.Fingerprint
	binary.BigEndian.PutUint32(fp[:4], uint32(idx))
	fp[31] = salt
	return fp
}

func TestCacheStoreLookup(t *testing.T) {
	var c evalCache
	now := time.Now()
	fp := scan.FingerprintOf([]byte("cached code"))

	c.store(fp, types.VerdictAllow, types.CapNetwork, types.ThreatLow, now, time.Time{})
	entry, ok := c.lookup(fp, now)
	if !ok {
		t.Fatal("stored entry not found")
	}
	if entry.Verdict != types.VerdictAllow || entry.GrantedCaps != types.CapNetwork {
		t.Errorf("entry = %s/%s", entry.Verdict, entry.GrantedCaps)
	}
	if entry.HitCount != 1 {
		t.Errorf("hit count = %d, want 1", entry.HitCount)
	}
	if c.hits != 1 || c.misses != 0 {
		t.Errorf("hits/misses = %d/%d, want 1/0", c.hits, c.misses)
	}

	if _, ok := c.lookup(scan.FingerprintOf([]byte("absent")), now); ok {
		t.Error("absent entry found")
	}
	if c.misses != 1 {
		t.Errorf("misses = %d, want 1", c.misses)
	}
}

func TestCacheNeverStoresCritical(t *testing.T) {
	var c evalCache
	now := time.Now()
	fp := scan.FingerprintOf([]byte("critical code"))
	c.store(fp, types.VerdictDeny, 0, types.ThreatCritical, now, time.Time{})
	if _, ok := c.lookup(fp, now); ok {
		t.Fatal("critical verdict was cached")
	}
}

func TestCacheExpiry(t *testing.T) {
	var c evalCache
	now := time.Now()
	fp := scan.FingerprintOf([]byte("expiring"))
	c.store(fp, types.VerdictAllow, 0, types.ThreatNone, now, now.Add(time.Minute))

	if _, ok := c.lookup(fp, now.Add(30*time.Second)); !ok {
		t.Fatal("entry expired early")
	}
	if _, ok := c.lookup(fp, now.Add(2*time.Minute)); ok {
		t.Fatal("expired entry served")
	}
	// expiry invalidated the slot; a fresh store reuses it
	c.store(fp, types.VerdictAllow, 0, types.ThreatNone, now, time.Time{})
	if _, ok := c.lookup(fp, now.Add(time.Hour)); !ok {
		t.Error("restored entry not found")
	}
}

func TestCacheProbing(t *testing.T) {
	var c evalCache
	now := time.Now()

	// fill the primary slot and the full probe window of index 7
	for i := 0; i < cacheProbes; i++ {
		c.store(fpAt(7, byte(i)), types.VerdictAllow, 0, types.ThreatNone, now, time.Time{})
	}
	for i := 0; i < cacheProbes; i++ {
		if _, ok := c.lookup(fpAt(7, byte(i)), now); !ok {
			t.Fatalf("probed entry %d not found", i)
		}
	}

	// a ninth colliding entry evicts the primary slot
	extra := fpAt(7, 99)
	c.store(extra, types.VerdictAllow, 0, types.ThreatNone, now, time.Time{})
	if _, ok := c.lookup(extra, now); !ok {
		t.Fatal("overflow entry not stored in primary slot")
	}
	if _, ok := c.lookup(fpAt(7, 0), now); ok {
		t.Error("evicted entry still served")
	}
}

func TestCacheInvalidateAndClear(t *testing.T) {
	var c evalCache
	now := time.Now()
	fp := scan.FingerprintOf([]byte("to invalidate"))
	c.store(fp, types.VerdictAllow, 0, types.ThreatNone, now, time.Time{})

	if !c.invalidate(fp) {
		t.Fatal("invalidate missed the entry")
	}
	if c.invalidate(fp) {
		t.Error("double invalidate reported success")
	}
	if _, ok := c.lookup(fp, now); ok {
		t.Error("invalidated entry served")
	}

	c.store(fp, types.VerdictAllow, 0, types.ThreatNone, now, time.Time{})
	c.lookup(fp, now)
	c.clear()
	if c.used() != 0 {
		t.Errorf("used after clear = %d", c.used())
	}
	if c.hits != 0 || c.misses != 0 {
		t.Errorf("counters after clear = %d/%d", c.hits, c.misses)
	}
}

func TestCacheOverwriteSameFingerprint(t *testing.T) {
	var c evalCache
	now := time.Now()
	fp := scan.FingerprintOf([]byte("rewritten"))
	c.store(fp, types.VerdictAllow, 0, types.ThreatNone, now, time.Time{})
	c.store(fp, types.VerdictDeny, 0, types.ThreatMedium, now, time.Time{})

	if c.used() != 1 {
		t.Fatalf("used = %d, want 1", c.used())
	}
	entry, ok := c.lookup(fp, now)
	if !ok || entry.Verdict != types.VerdictDeny {
		t.Error("overwrite did not replace the entry in place")
	}
}
