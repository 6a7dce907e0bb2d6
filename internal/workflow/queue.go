package workflow

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// keyedQueue serialises work per key: one holder per key at a time,
// waiters are admitted in FIFO order.
type keyedQueue struct {
	slots map[string]*queueSlot
	mu    sync.Mutex
}

type queueSlot struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyedQueue() *keyedQueue {
	return &keyedQueue{slots: make(map[string]*queueSlot)}
}

// acquire blocks until key is free or ctx is done.
// The returned release func must be called exactly once.
func (q *keyedQueue) acquire(ctx context.Context, key string) (func(), error) {
	q.mu.Lock()
	s, ok := q.slots[key]
	if !ok {
		s = &queueSlot{sem: semaphore.NewWeighted(1)}
		q.slots[key] = s
	}
	s.refs++
	q.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		q.drop(key, s)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.sem.Release(1)
			q.drop(key, s)
		})
	}, nil
}

func (q *keyedQueue) drop(key string, s *queueSlot) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s.refs--
	if s.refs == 0 && q.slots[key] == s {
		delete(q.slots, key)
	}
}

// len returns the number of keys with holders or waiters.
func (q *keyedQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.slots)
}
