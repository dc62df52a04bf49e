package station

import (
	"context"
	"errors"
	"sync"
)

// ErrNegativePermits is the error returned when a semaphore is constructed
// with a negative permit count.
var ErrNegativePermits = errors.New("station: negative permit count")

// Semaphore is a counting semaphore: it holds a non-negative number of
// permits, Acquire blocks until one is available and takes it, Release
// returns one.
//
// When several goroutines are blocked in Acquire, which of them proceeds
// after a Release is unspecified. There is no FIFO guarantee, and callers
// must not rely on wake order.
type Semaphore struct {
	mu      sync.Mutex
	cond    *sync.Cond
	permits int
}

// NewSemaphore returns a semaphore holding the given number of permits.
// It fails with ErrNegativePermits when permits is negative.
func NewSemaphore(permits int) (*Semaphore, error) {
	if permits < 0 {
		return nil, ErrNegativePermits
	}
	s := &Semaphore{permits: permits}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Acquire blocks until a permit is available, then takes it. If ctx is
// already cancelled or is cancelled while waiting, it returns ctx.Err()
// without taking a permit.
// Pass context.Background() for an acquire that can only succeed.
func (s *Semaphore) Acquire(ctx context.Context) error {
	// Waiters park on the condition, so cancellation has to wake them
	// before they can observe ctx.Err().
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	// A cancelled context never takes a permit, even when one is free.
	if err := ctx.Err(); err != nil {
		return err
	}
	for s.permits == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
	s.permits--
	return nil
}

// Release returns one permit and wakes blocked acquirers. It never blocks
// and never fails.
func (s *Semaphore) Release() {
	s.mu.Lock()
	s.permits++
	s.mu.Unlock()
	s.cond.Broadcast()
}

// AvailablePermits reports the current permit count. Under concurrent use
// the value may be stale by the time the caller sees it; it is meant for
// monitoring and progress checks, never for correctness decisions.
func (s *Semaphore) AvailablePermits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}
