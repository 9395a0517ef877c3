package eviction

import (
	"container/list"
	"time"
)

// lruPolicy evicts the least recently used key. It keeps a doubly linked
// list ordered by recency: the front holds the most recently touched key,
// the back holds the eviction candidate.
type lruPolicy struct {
	order *list.List               // front = most recent, back = least recent
	index map[string]*list.Element // key -> list element
}

func newLRU() *lruPolicy {
	return &lruPolicy{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// ShouldEvict triggers purely on memory overage.
func (p *lruPolicy) ShouldEvict(currentMemory, maxMemory int64) bool {
	return currentMemory > maxMemory
}

// SelectVictim returns the least recently used key.
func (p *lruPolicy) SelectVictim() (string, bool) {
	back := p.order.Back()
	if back == nil {
		return "", false
	}
	return back.Value.(string), true
}

// OnAccess promotes the key to the most-recent end.
func (p *lruPolicy) OnAccess(key string, _ time.Time) {
	if elem, ok := p.index[key]; ok {
		p.order.MoveToFront(elem)
	}
}

// OnPut inserts the key at the most-recent end, or promotes it if present.
func (p *lruPolicy) OnPut(key string, _ time.Time) {
	if elem, ok := p.index[key]; ok {
		p.order.MoveToFront(elem)
		return
	}
	p.index[key] = p.order.PushFront(key)
}

func (p *lruPolicy) OnRemove(key string) {
	if elem, ok := p.index[key]; ok {
		p.order.Remove(elem)
		delete(p.index, key)
	}
}
