package eviction

import (
	"testing"
	"time"
)

func TestNewRejectsUnknownPolicy(t *testing.T) {
	if _, err := New("CLOCK"); err == nil {
		t.Error("Expected error for unknown policy")
	}

	for _, name := range []string{LRU, LFU, TTL, FIFO, Random} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%s) failed: %v", name, err)
		}
	}
}

func TestLRUVictimOrder(t *testing.T) {
	p := newLRU()

	p.OnPut("a", time.Time{})
	p.OnPut("b", time.Time{})
	p.OnPut("c", time.Time{})

	if victim, ok := p.SelectVictim(); !ok || victim != "a" {
		t.Errorf("Expected victim a, got %s (ok: %t)", victim, ok)
	}

	// Touching a key protects it from eviction.
	p.OnAccess("a", time.Time{})

	if victim, ok := p.SelectVictim(); !ok || victim != "b" {
		t.Errorf("Expected victim b after touching a, got %s (ok: %t)", victim, ok)
	}

	p.OnRemove("b")

	if victim, ok := p.SelectVictim(); !ok || victim != "c" {
		t.Errorf("Expected victim c after removing b, got %s (ok: %t)", victim, ok)
	}
}

func TestLRUEmpty(t *testing.T) {
	p := newLRU()

	if _, ok := p.SelectVictim(); ok {
		t.Error("Empty policy should have no victim")
	}

	if p.ShouldEvict(10, 100) {
		t.Error("Should not evict below memory budget")
	}

	if !p.ShouldEvict(101, 100) {
		t.Error("Should evict above memory budget")
	}
}

func TestLFUVictimIsLeastFrequent(t *testing.T) {
	p := newLFU()

	p.OnPut("hot", time.Time{})
	p.OnPut("cold", time.Time{})

	p.OnAccess("hot", time.Time{})
	p.OnAccess("hot", time.Time{})

	if victim, ok := p.SelectVictim(); !ok || victim != "cold" {
		t.Errorf("Expected victim cold, got %s (ok: %t)", victim, ok)
	}

	// An overwrite resets the frequency to 1.
	p.OnAccess("cold", time.Time{})
	p.OnAccess("cold", time.Time{})
	p.OnAccess("cold", time.Time{})
	p.OnPut("hot", time.Time{})

	if victim, ok := p.SelectVictim(); !ok || victim != "hot" {
		t.Errorf("Expected victim hot after overwrite reset, got %s (ok: %t)", victim, ok)
	}
}

func TestTTLVictimOnlyWhenExpired(t *testing.T) {
	p := newTTL()

	if !p.ShouldEvict(0, 100) {
		t.Error("TTL policy should always report ShouldEvict")
	}

	p.OnPut("later", time.Now().Add(time.Hour))

	if victim, ok := p.SelectVictim(); ok {
		t.Errorf("Unexpired entry should not be a victim, got %s", victim)
	}

	p.OnPut("soon", time.Now().Add(-time.Millisecond))

	if victim, ok := p.SelectVictim(); !ok || victim != "soon" {
		t.Errorf("Expected expired victim soon, got %s (ok: %t)", victim, ok)
	}
}

func TestTTLStaleHeapEntries(t *testing.T) {
	p := newTTL()

	// First expiry passes, but the key is overwritten with a later one
	// before selection runs; the stale heap item must be skipped.
	p.OnPut("k", time.Now().Add(-time.Second))
	p.OnPut("k", time.Now().Add(time.Hour))

	if victim, ok := p.SelectVictim(); ok {
		t.Errorf("Overwritten entry should not be a victim, got %s", victim)
	}

	// Removed keys must be skipped too.
	p.OnPut("gone", time.Now().Add(-time.Second))
	p.OnRemove("gone")

	if victim, ok := p.SelectVictim(); ok {
		t.Errorf("Removed entry should not be a victim, got %s", victim)
	}
}

func TestTTLIgnoresEntriesWithoutExpiry(t *testing.T) {
	p := newTTL()

	p.OnPut("forever", time.Time{})

	if victim, ok := p.SelectVictim(); ok {
		t.Errorf("Entry without expiry should never be a victim, got %s", victim)
	}
}

func TestFIFOIgnoresAccess(t *testing.T) {
	p := newFIFO()

	p.OnPut("first", time.Time{})
	p.OnPut("second", time.Time{})

	// Reads and overwrites must not change insertion order.
	p.OnAccess("first", time.Time{})
	p.OnPut("first", time.Time{})

	if victim, ok := p.SelectVictim(); !ok || victim != "first" {
		t.Errorf("Expected victim first, got %s (ok: %t)", victim, ok)
	}

	p.OnRemove("first")

	if victim, ok := p.SelectVictim(); !ok || victim != "second" {
		t.Errorf("Expected victim second, got %s (ok: %t)", victim, ok)
	}
}

func TestRandomVictimIsTracked(t *testing.T) {
	p := newRandom()

	if _, ok := p.SelectVictim(); ok {
		t.Error("Empty policy should have no victim")
	}

	p.OnPut("only", time.Time{})

	if victim, ok := p.SelectVictim(); !ok || victim != "only" {
		t.Errorf("Expected victim only, got %s (ok: %t)", victim, ok)
	}

	p.OnRemove("only")

	if _, ok := p.SelectVictim(); ok {
		t.Error("Policy should have no victim after removal")
	}
}
