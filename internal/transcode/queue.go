package transcode

import (
	"context"
	"sync"
)

// fifo is an unbounded first-in-first-out queue of job ids. Submit must
// never block, so the queue grows instead of applying backpressure;
// admission is bounded downstream by the worker slots.
type fifo struct {
	mu     sync.Mutex
	items  []string
	signal chan struct{}
}

func newFIFO() *fifo {
	return &fifo{signal: make(chan struct{}, 1)}
}

func (q *fifo) push(id string) {
	q.mu.Lock()
	q.items = append(q.items, id)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop blocks until an item is available or the context is canceled.
func (q *fifo) pop(ctx context.Context) (string, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()

			// Wake a sibling worker if work remains.
			if remaining > 0 {
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			return id, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-q.signal:
		}
	}
}

func (q *fifo) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
