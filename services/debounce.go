package services

import "sync"

// FailureCounter counts consecutive failed probes per camera address. It
// lives for the whole process and is never persisted.
type FailureCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewFailureCounter() *FailureCounter {
	return &FailureCounter{counts: make(map[string]int)}
}

func (c *FailureCounter) Increment(address string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[address]++
	return c.counts[address]
}

func (c *FailureCounter) Reset(address string) {
	c.mu.Lock()
	delete(c.counts, address)
	c.mu.Unlock()
}

func (c *FailureCounter) Get(address string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[address]
}
