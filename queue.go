package station

import (
	"context"
	"errors"
)

// ErrInvalidCapacity is the error returned when a queue is constructed with
// a capacity below one.
var ErrInvalidCapacity = errors.New("station: queue capacity must be at least 1")

// Queue is a bounded FIFO of clients assembled from three semaphores: empty
// counts free slots, filled counts queued clients, and mutex serializes the
// slice mutation. Producers block in Enqueue while the queue is full and
// consumers block in Dequeue while it is empty, so backpressure works in
// both directions.
//
// Both paths take their slot semaphore strictly before the mutex. Reversing
// that order on either path can deadlock the whole station.
type Queue struct {
	empty  *Semaphore
	filled *Semaphore
	mutex  *Semaphore

	capacity int
	items    []Client
}

// NewQueue returns an empty queue with the given fixed capacity. A queue
// with fewer than one slot could never move an item, so construction fails
// with ErrInvalidCapacity.
func NewQueue(capacity int) (*Queue, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	empty, err := NewSemaphore(capacity)
	if err != nil {
		return nil, err
	}
	filled, err := NewSemaphore(0)
	if err != nil {
		return nil, err
	}
	mutex, err := NewSemaphore(1)
	if err != nil {
		return nil, err
	}
	return &Queue{
		empty:    empty,
		filled:   filled,
		mutex:    mutex,
		capacity: capacity,
		items:    make([]Client, 0, capacity),
	}, nil
}

// Enqueue appends c to the tail, blocking while the queue is at capacity.
// It returns the queue depth observed right after the append, for progress
// reporting. An item is never silently dropped: Enqueue returns nil only
// once c is placed and visible to dequeuers, and if ctx is cancelled after
// the slot permit was taken the permit is returned before the error.
func (q *Queue) Enqueue(ctx context.Context, c Client) (int, error) {
	if err := q.empty.Acquire(ctx); err != nil {
		return 0, err
	}
	if err := q.mutex.Acquire(ctx); err != nil {
		q.empty.Release()
		return 0, err
	}
	q.items = append(q.items, c)
	depth := len(q.items)
	q.mutex.Release()
	q.filled.Release()
	return depth, nil
}

// Dequeue removes and returns the head, blocking while the queue is empty.
// The returned depth is the occupancy right after the removal. Clients that
// reached the queue come out in the order they were enqueued; no order is
// promised among enqueuers that were concurrently blocked on a full queue.
func (q *Queue) Dequeue(ctx context.Context) (Client, int, error) {
	if err := q.filled.Acquire(ctx); err != nil {
		return Client{}, 0, err
	}
	if err := q.mutex.Acquire(ctx); err != nil {
		q.filled.Release()
		return Client{}, 0, err
	}
	c := q.items[0]
	n := copy(q.items, q.items[1:])
	q.items = q.items[:n]
	depth := len(q.items)
	q.mutex.Release()
	q.empty.Release()
	return c, depth, nil
}

// Occupancy reports the number of queued clients. Same snapshot caveat as
// Semaphore.AvailablePermits: monitoring only.
func (q *Queue) Occupancy() int {
	return q.filled.AvailablePermits()
}

// Capacity reports the fixed slot count.
func (q *Queue) Capacity() int {
	return q.capacity
}
