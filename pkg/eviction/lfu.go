package eviction

import "time"

// lfuPolicy evicts the least frequently used key. It keeps a per-key access
// counter: OnAccess increments, OnPut resets to 1 (an overwrite is a fresh
// entry as far as frequency is concerned).
//
// Ties between keys with equal frequency are broken by map iteration order.
// This is an accepted non-determinism: callers that need a predictable
// victim must arrange distinct frequencies.
type lfuPolicy struct {
	freq map[string]uint64
}

func newLFU() *lfuPolicy {
	return &lfuPolicy{freq: make(map[string]uint64)}
}

// ShouldEvict triggers purely on memory overage.
func (p *lfuPolicy) ShouldEvict(currentMemory, maxMemory int64) bool {
	return currentMemory > maxMemory
}

// SelectVictim returns the key with the minimum access frequency.
func (p *lfuPolicy) SelectVictim() (string, bool) {
	var victim string
	var min uint64
	found := false
	for key, count := range p.freq {
		if !found || count < min {
			victim = key
			min = count
			found = true
		}
	}
	return victim, found
}

func (p *lfuPolicy) OnAccess(key string, _ time.Time) {
	if _, ok := p.freq[key]; ok {
		p.freq[key]++
	}
}

func (p *lfuPolicy) OnPut(key string, _ time.Time) {
	p.freq[key] = 1
}

func (p *lfuPolicy) OnRemove(key string) {
	delete(p.freq, key)
}
