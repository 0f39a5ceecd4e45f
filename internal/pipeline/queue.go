package pipeline

import "sync"

const (
	// queueCapacity is the hard bound on pending raw messages per session.
	queueCapacity = 100
	// queueKeepOnOverflow is how many of the most recent entries survive an
	// overflow. Book meaning is defined by current state and the engine
	// detects divergence via checksum, so stale deltas are droppable.
	queueKeepOnOverflow = 50
)

// messageQueue is the bounded FIFO of raw feed payloads owned by one
// session. Overflow applies a drop-oldest-batch policy rather than blocking
// the transport read loop.
type messageQueue struct {
	mu    sync.Mutex
	items [][]byte
}

func newMessageQueue() *messageQueue {
	return &messageQueue{items: make([][]byte, 0, queueCapacity)}
}

// Push appends raw at the tail. When the append would exceed capacity, only
// the most recent queueKeepOnOverflow entries (including raw) are retained.
// Returns the number of dropped entries, zero in the common case.
func (q *messageQueue) Push(raw []byte) (dropped int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, raw)
	if len(q.items) > queueCapacity {
		dropped = len(q.items) - queueKeepOnOverflow
		kept := make([][]byte, queueKeepOnOverflow, queueCapacity)
		copy(kept, q.items[len(q.items)-queueKeepOnOverflow:])
		q.items = kept
	}
	return dropped
}

// Pop removes and returns the head entry, or false when empty.
func (q *messageQueue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	raw := q.items[0]
	q.items = q.items[1:]
	return raw, true
}

// Len returns the number of pending entries.
func (q *messageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
