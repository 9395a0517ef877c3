package eviction

import "time"

// randomPolicy evicts an arbitrary key. It relies on Go's randomized map
// iteration order for victim selection, which is cheap and needs no
// per-access bookkeeping.
type randomPolicy struct {
	keys map[string]struct{}
}

func newRandom() *randomPolicy {
	return &randomPolicy{keys: make(map[string]struct{})}
}

// ShouldEvict triggers purely on memory overage.
func (p *randomPolicy) ShouldEvict(currentMemory, maxMemory int64) bool {
	return currentMemory > maxMemory
}

// SelectVictim returns an arbitrary tracked key.
func (p *randomPolicy) SelectVictim() (string, bool) {
	for key := range p.keys {
		return key, true
	}
	return "", false
}

func (p *randomPolicy) OnAccess(_ string, _ time.Time) {}

func (p *randomPolicy) OnPut(key string, _ time.Time) {
	p.keys[key] = struct{}{}
}

func (p *randomPolicy) OnRemove(key string) {
	delete(p.keys, key)
}
