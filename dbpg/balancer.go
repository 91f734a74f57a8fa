package dbpg

import "sync"

// balancer hands out replica indexes round-robin.
type balancer struct {
	mu  sync.Mutex
	idx int
	n   int // количество реплик
}

func newBalancer(n int) *balancer {
	return &balancer{n: n}
}

func (b *balancer) index() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.idx
	b.idx = (b.idx + 1) % b.n
	return res
}
