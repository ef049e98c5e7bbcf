package session

import "sync"

// actionQueue is a FIFO of deferred actions. Pushes may come from any
// goroutine; popping happens on the game loop. Once the queue is marked
// ready it stops accepting actions, so nothing lands after the last drain.
type actionQueue struct {
	mu    sync.Mutex
	items []func()
	ready bool
}

// pushUnlessReady queues fn and reports true, or reports false when the
// queue has already been drained for good.
func (q *actionQueue) pushUnlessReady(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return false
	}
	q.items = append(q.items, fn)
	return true
}

// popOrMarkReady returns the next action. On an empty queue it marks the
// queue ready and runs onReady while still holding the lock.
func (q *actionQueue) popOrMarkReady(onReady func()) (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		q.ready = true
		if onReady != nil {
			onReady()
		}
		return nil, false
	}
	fn := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return fn, true
}

func (q *actionQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// clear drops pending actions and returns the queue to accepting pushes.
func (q *actionQueue) clear() {
	q.mu.Lock()
	q.items = nil
	q.ready = false
	q.mu.Unlock()
}
