package services

import "sync"

// StatusHub fans cycle results out to live subscribers. Slow subscribers
// miss results instead of blocking the monitor.
type StatusHub struct {
	mu          sync.RWMutex
	subscribers map[chan CycleResult]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{subscribers: make(map[chan CycleResult]struct{})}
}

func (h *StatusHub) Subscribe() chan CycleResult {
	ch := make(chan CycleResult, 4)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *StatusHub) Unsubscribe(ch chan CycleResult) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *StatusHub) Publish(result CycleResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- result:
		default:
		}
	}
}

func (h *StatusHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
