package eviction

import (
	"container/list"
	"time"
)

// fifoPolicy evicts the oldest inserted key still present. Insertion order is
// never changed by reads, and an overwrite keeps the key's original position.
type fifoPolicy struct {
	order *list.List               // front = oldest insert
	index map[string]*list.Element // key -> list element
}

func newFIFO() *fifoPolicy {
	return &fifoPolicy{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// ShouldEvict triggers purely on memory overage.
func (p *fifoPolicy) ShouldEvict(currentMemory, maxMemory int64) bool {
	return currentMemory > maxMemory
}

// SelectVictim returns the oldest inserted key.
func (p *fifoPolicy) SelectVictim() (string, bool) {
	front := p.order.Front()
	if front == nil {
		return "", false
	}
	return front.Value.(string), true
}

// OnAccess is a no-op: FIFO ignores reads.
func (p *fifoPolicy) OnAccess(_ string, _ time.Time) {}

func (p *fifoPolicy) OnPut(key string, _ time.Time) {
	if _, ok := p.index[key]; ok {
		return
	}
	p.index[key] = p.order.PushBack(key)
}

func (p *fifoPolicy) OnRemove(key string) {
	if elem, ok := p.index[key]; ok {
		p.order.Remove(elem)
		delete(p.index, key)
	}
}
