package governor

import (
	"encoding/binary"
	"time"

	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/types"
)

const (
	// CacheSize is the number of cache slots. Must be a power of two so the
	// fingerprint prefix can be masked into an index.
	CacheSize = 256

	// cacheProbes is the linear probe limit per lookup or store.
	cacheProbes = 8
)

// CacheEntry is one cached evaluation outcome.
type CacheEntry struct {
	Fingerprint scan.Fingerprint
	Verdict     types.Verdict
	GrantedCaps types.CapabilityMask
	Threat      types.ThreatLevel
	CachedAt    time.Time
	ValidUntil  time.Time // zero means no expiry
	HitCount    uint64
	Valid       bool
}

func (e *CacheEntry) expired(now time.Time) bool {
	return !e.ValidUntil.IsZero() && now.After(e.ValidUntil)
}

// evalCache is an open-addressed table keyed by code fingerprint. Collisions
// probe linearly up to cacheProbes slots; on a full neighborhood the store
// evicts the primary slot. Critical verdicts are never cached so a critical
// evaluation is always re-analyzed.
type evalCache struct {
	slots  [CacheSize]CacheEntry
	hits   uint64
	misses uint64
}

// slotIndex maps a fingerprint to its primary slot using the first four
// bytes interpreted big-endian.
func slotIndex(fp scan.Fingerprint) int {
	return int(binary.BigEndian.Uint32(fp[:4]) & (CacheSize - 1))
}

// lookup returns the live entry for fp, probing up to cacheProbes slots.
// Expired entries are invalidated on sight. Hit and miss counters update as
// a side effect.
func (c *evalCache) lookup(fp scan.Fingerprint, now time.Time) (*CacheEntry, bool) {
	base := slotIndex(fp)
	for i := 0; i < cacheProbes; i++ {
		slot := &c.slots[(base+i)&(CacheSize-1)]
		if !slot.Valid || slot.Fingerprint != fp {
			continue
		}
		if slot.expired(now) {
			slot.Valid = false
			break
		}
		slot.HitCount++
		c.hits++
		return slot, true
	}
	c.misses++
	return nil, false
}

// store records an evaluation outcome. Critical entries are silently
// rejected. When an entry for the same fingerprint exists in the probe
// window it is overwritten in place; otherwise the first free slot wins,
// and with no free slot the primary slot is evicted.
func (c *evalCache) store(fp scan.Fingerprint, verdict types.Verdict, caps types.CapabilityMask, threat types.ThreatLevel, now, validUntil time.Time) {
	if threat == types.ThreatCritical {
		return
	}
	base := slotIndex(fp)
	target := -1
	for i := 0; i < cacheProbes; i++ {
		idx := (base + i) & (CacheSize - 1)
		slot := &c.slots[idx]
		if slot.Valid && slot.Fingerprint == fp {
			target = idx
			break
		}
		if target < 0 && (!slot.Valid || slot.expired(now)) {
			target = idx
		}
	}
	if target < 0 {
		target = base
	}
	c.slots[target] = CacheEntry{
		Fingerprint: fp,
		Verdict:     verdict,
		GrantedCaps: caps,
		Threat:      threat,
		CachedAt:    now,
		ValidUntil:  validUntil,
		Valid:       true,
	}
}

// invalidate drops the entry for fp if present, reporting whether an entry
// was removed.
func (c *evalCache) invalidate(fp scan.Fingerprint) bool {
	base := slotIndex(fp)
	for i := 0; i < cacheProbes; i++ {
		slot := &c.slots[(base+i)&(CacheSize-1)]
		if slot.Valid && slot.Fingerprint == fp {
			slot.Valid = false
			return true
		}
	}
	return false
}

// clear drops every entry and resets the hit and miss counters.
func (c *evalCache) clear() {
	for i := range c.slots {
		c.slots[i].Valid = false
	}
	c.hits = 0
	c.misses = 0
}

// used counts live entries.
func (c *evalCache) used() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].Valid {
			n++
		}
	}
	return n
}
