package station

import "context"

// BayPool limits how many clients are serviced at once to the number of
// physical bays. It is a thin reuse of Semaphore: the permit count at any
// instant is the number of idle bays.
type BayPool struct {
	sem  *Semaphore
	bays int
}

// NewBayPool returns a pool with one permit per bay.
func NewBayPool(bays int) (*BayPool, error) {
	sem, err := NewSemaphore(bays)
	if err != nil {
		return nil, err
	}
	return &BayPool{sem: sem, bays: bays}, nil
}

// Acquire takes a free bay, blocking while all bays are busy.
func (p *BayPool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx)
}

// Release frees the bay.
func (p *BayPool) Release() {
	p.sem.Release()
}

// FreeBays reports the number of idle bays as a monitoring snapshot.
func (p *BayPool) FreeBays() int {
	return p.sem.AvailablePermits()
}

// Bays reports the configured bay count.
func (p *BayPool) Bays() int {
	return p.bays
}
