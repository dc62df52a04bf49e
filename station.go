// Package station simulates a resource-constrained service station: cars
// arrive, wait in a bounded queue, and are serviced by a fixed pool of
// pumps.
//
// The building blocks are a counting semaphore (Semaphore), a bounded
// blocking queue assembled from three of them (Queue), and a bay pool
// (BayPool). Station wires them together: one producer goroutine per
// arriving car, one long-running worker goroutine per pump, and a polling
// loop that detects when all work is drained and every bay is idle.
package station

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github/station/stats"
)

// ErrNegativeArrivals is the error returned when a station is configured
// with a negative arrival count.
var ErrNegativeArrivals = errors.New("station: negative arrival count")

// Printer is the injected output collaborator for progress lines. Emission
// must be internally serialized; *log.Logger satisfies that.
type Printer interface {
	Printf(format string, v ...interface{})
}

type nopPrinter struct{}

func (nopPrinter) Printf(string, ...interface{}) {}

// Options configure a simulation run.
type Options struct {
	QueueCapacity int // waiting area slots
	Bays          int // number of pumps
	Arrivals      int // total cars to generate

	// ArrivalDelay is slept between producer launches and ServiceDuration
	// is how long one service takes. Either may be nil, meaning zero.
	ArrivalDelay    func() time.Duration
	ServiceDuration func() time.Duration

	// PollInterval is the pause between quiescence checks. Zero or
	// negative means one second.
	PollInterval time.Duration

	Log   Printer      // nil discards all output
	Stats *stats.Stats // optional service-time collection
}

// Summary describes a finished run.
type Summary struct {
	Serviced  int           // cars that completed service
	QueueLeft int           // occupancy at shutdown, 0 after a clean run
	FreeBays  int           // idle bays at shutdown
	Elapsed   time.Duration // wall clock for the whole run
}

// Station owns the queue, the bay pool, and the run configuration. Create
// one with New and drive it with Run; a Station is good for a single run.
type Station struct {
	opts  Options
	queue *Queue
	pool  *BayPool

	// settled counts cars that left the bay (serviced or faulted) and is
	// what quiescence detection trusts; serviced counts only successes.
	settled  atomic.Int64
	serviced atomic.Int64
}

// New validates the configuration and builds the queue and the pool.
// Configuration errors are reported here, before any goroutine starts.
func New(opts Options) (*Station, error) {
	if opts.Arrivals < 0 {
		return nil, ErrNegativeArrivals
	}
	queue, err := NewQueue(opts.QueueCapacity)
	if err != nil {
		return nil, err
	}
	pool, err := NewBayPool(opts.Bays)
	if err != nil {
		return nil, err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Log == nil {
		opts.Log = nopPrinter{}
	}
	return &Station{opts: opts, queue: queue, pool: pool}, nil
}

// Run drives a full simulation. The workers come up first, one per bay,
// and run until told to stop. Producers are launched one per arrival with
// the configured inter-arrival delay between launches and are all joined,
// which guarantees every car has at least reached Enqueue. Run then polls
// for quiescence, performs the shutdown handshake with the workers, and
// returns a Summary.
//
// Cancelling ctx aborts the run; cars not yet serviced at that point are
// dropped and Run returns the context's error.
func (s *Station) Run(ctx context.Context) (Summary, error) {
	start := time.Now()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var workers sync.WaitGroup
	for id := 1; id <= s.opts.Bays; id++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			s.worker(workerCtx, id)
		}(id)
	}

	g, prodCtx := errgroup.WithContext(ctx)
	var launchErr error
	for id := 1; id <= s.opts.Arrivals; id++ {
		id := id
		g.Go(func() error {
			return s.producer(prodCtx, id)
		})
		if id < s.opts.Arrivals && s.opts.ArrivalDelay != nil {
			if err := sleepFor(ctx, s.opts.ArrivalDelay()); err != nil {
				launchErr = err
				break
			}
		}
	}

	err := g.Wait()
	if err == nil {
		err = launchErr
	}
	if err == nil {
		err = s.awaitQuiescence(ctx)
	}
	if err != nil {
		stopWorkers()
		workers.Wait()
		return Summary{}, err
	}

	s.opts.Log.Printf("All cars serviced. Shutting down pumps.")
	stopWorkers()
	workers.Wait()

	return Summary{
		Serviced:  int(s.serviced.Load()),
		QueueLeft: s.queue.Occupancy(),
		FreeBays:  s.pool.FreeBays(),
		Elapsed:   time.Since(start),
	}, nil
}

// producer is one arriving car: announce, enqueue exactly once, terminate.
// A producer has no failure path of its own; if the queue is full it simply
// waits for a worker to drain a slot.
func (s *Station) producer(ctx context.Context, id int) error {
	car := Client{Name: fmt.Sprintf("Car %d", id), ID: id}
	s.opts.Log.Printf("%s arrived", car.Name)
	depth, err := s.queue.Enqueue(ctx, car)
	if err != nil {
		return err
	}
	s.opts.Log.Printf("%s entered the waiting queue. (Queue size: %d)", car.Name, depth)
	return nil
}

// worker services cars until its context is cancelled. A fault in the
// service step stops this worker only; the rest keep running on a reduced
// bay pool.
func (s *Station) worker(ctx context.Context, id int) {
	for {
		car, depth, err := s.queue.Dequeue(ctx)
		if err != nil {
			// Cancelled during shutdown, between units of work.
			return
		}
		s.opts.Log.Printf("Pump %d: %s taken from queue. (Queue size: %d)", id, car.Name, depth)

		if err := s.pool.Acquire(ctx); err != nil {
			return
		}
		err = s.service(id, car)
		s.settled.Add(1)
		if err != nil {
			s.opts.Log.Printf("Pump %d: stopping after fault: %v", id, err)
			return
		}
		s.serviced.Add(1)
	}
}

// service performs one randomized-duration service while holding a bay
// permit. The permit is always returned, even when the service step
// panics; the panic is converted to the returned error.
func (s *Station) service(pump int, car Client) (err error) {
	defer s.pool.Release()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("service of %s panicked: %v", car.Name, r)
		}
	}()

	var timer stats.Timer
	if s.opts.Stats != nil {
		timer = s.opts.Stats.Time()
	}

	s.opts.Log.Printf("Pump %d: %s begins service at Bay %d", pump, car.Name, pump)
	if s.opts.ServiceDuration != nil {
		time.Sleep(s.opts.ServiceDuration())
	}
	s.opts.Log.Printf("Pump %d: %s finishes service", pump, car.Name)
	s.opts.Log.Printf("Pump %d: Bay %d is now free", pump, pump)

	if s.opts.Stats != nil {
		timer.Mark()
	}
	return nil
}

// awaitQuiescence polls the queue depth and the free-bay count until both
// read idle. The two snapshots alone could race with a car in transit
// between Dequeue and the bay inside one worker, so quiescence additionally
// requires that every produced car has left the bay. A stale reading costs
// one extra poll cycle; a false completion cannot happen.
func (s *Station) awaitQuiescence(ctx context.Context) error {
	tick := time.NewTicker(s.opts.PollInterval)
	defer tick.Stop()
	for {
		waiting := s.queue.Occupancy()
		free := s.pool.FreeBays()
		if waiting == 0 && free == s.pool.Bays() && int(s.settled.Load()) == s.opts.Arrivals {
			return nil
		}
		select {
		case <-tick.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sleepFor pauses for d, returning early with the context's error if ctx is
// cancelled first.
func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
