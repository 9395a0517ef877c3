package eviction

import (
	"container/heap"
	"time"
)

// ttlPolicy evicts the earliest-expiring key whose expiry has already passed.
//
// ShouldEvict always reports true so the owning node consults the policy on
// every write, letting expired entries be reclaimed proactively even when the
// node is under no memory pressure. When nothing has expired, SelectVictim
// reports no candidate and the eviction loop stops; unexpired entries are
// never evicted by this policy.
type ttlPolicy struct {
	queue  expiryHeap           // min-ordered by expiry time
	expiry map[string]time.Time // current expiry per live key
}

type expiryItem struct {
	expiresAt time.Time
	key       string
}

type expiryHeap []expiryItem

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x interface{}) { *h = append(*h, x.(expiryItem)) }
func (h *expiryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func newTTL() *ttlPolicy {
	p := &ttlPolicy{expiry: make(map[string]time.Time)}
	heap.Init(&p.queue)
	return p
}

// ShouldEvict always reports true; expiry reclamation is independent of
// memory pressure.
func (p *ttlPolicy) ShouldEvict(_, _ int64) bool {
	return true
}

// SelectVictim returns the earliest-expiring key whose expiry has passed and
// which is still tracked by the policy. Heap items left stale by overwrites
// or removals are discarded along the way.
func (p *ttlPolicy) SelectVictim() (string, bool) {
	now := time.Now()
	for p.queue.Len() > 0 {
		item := p.queue[0]

		current, live := p.expiry[item.key]
		if !live || !current.Equal(item.expiresAt) {
			heap.Pop(&p.queue)
			continue
		}

		if item.expiresAt.After(now) {
			return "", false
		}

		heap.Pop(&p.queue)
		return item.key, true
	}
	return "", false
}

func (p *ttlPolicy) OnAccess(_ string, _ time.Time) {}

// OnPut records the entry's expiry. Entries without an expiry are not
// tracked: they can never become TTL victims.
func (p *ttlPolicy) OnPut(key string, expiresAt time.Time) {
	if expiresAt.IsZero() {
		delete(p.expiry, key)
		return
	}
	p.expiry[key] = expiresAt
	heap.Push(&p.queue, expiryItem{expiresAt: expiresAt, key: key})
}

func (p *ttlPolicy) OnRemove(key string) {
	delete(p.expiry, key)
}
