package app

import (
	"context"
	"sync"
)

// modeQueue serializes mode/configuration change requests from multiple
// producers (mobile client, keyboard shortcut, internal triggers) so the
// active sub-loop applies exactly one at a time, in enqueue order.
//
// Enqueue never blocks and never fails. Dequeue blocks until a request is
// available or ctx is cancelled; requests still queued at cancellation
// stay queued for the next consumer.
type modeQueue struct {
	mu    sync.Mutex
	items []modeChangeRequest
	wake  chan struct{}
}

func newModeQueue() *modeQueue {
	return &modeQueue{wake: make(chan struct{}, 1)}
}

func (q *modeQueue) Enqueue(req modeChangeRequest) {
	q.mu.Lock()
	q.items = append(q.items, req)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *modeQueue) Dequeue(ctx context.Context) (modeChangeRequest, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			req := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// Re-arm so another waiter is not stranded on a consumed
				// wake token.
				select {
				case q.wake <- struct{}{}:
				default:
				}
			}
			return req, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return modeChangeRequest{}, ctx.Err()
		case <-q.wake:
		}
	}
}

// requeueFront returns a dequeued-but-undelivered request to the head of
// the queue so the next consumer sees it first.
func (q *modeQueue) requeueFront(req modeChangeRequest) {
	q.mu.Lock()
	q.items = append([]modeChangeRequest{req}, q.items...)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *modeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
