// Package stats aggregates service-time samples into streaming quantiles.
package stats

import (
	"time"

	"github.com/bmizerany/perks/quantile"
)

// Stats collects duration samples on a background goroutine and answers
// quantile queries over everything recorded so far. The zero value is not
// usable; construct with New and Close when no more samples will arrive.
type Stats struct {
	stream  *quantile.Stream
	samples chan float64
	done    chan struct{}
}

// Timer marks the span between its creation and the call to Mark.
type Timer struct {
	start   time.Time
	samples chan float64
}

// Mark records the elapsed time since the Timer was created.
func (t Timer) Mark() {
	t.samples <- float64(time.Since(t.start).Nanoseconds())
}

// New starts a collector targeting the 50th, 95th and 99th percentiles.
func New() Stats {
	samples := make(chan float64, 10)
	stream := quantile.NewTargeted(0.5, 0.95, 0.99)
	done := make(chan struct{})

	go func() {
		for s := range samples {
			stream.Insert(s)
		}
		done <- struct{}{}
	}()

	return Stats{
		samples: samples,
		stream:  stream,
		done:    done,
	}
}

// Time returns a Timer feeding this collector.
func (s Stats) Time() Timer {
	return Timer{
		start:   time.Now(),
		samples: s.samples,
	}
}

// Observe records one duration sample directly.
func (s Stats) Observe(d time.Duration) {
	s.samples <- float64(d.Nanoseconds())
}

// Query returns the estimated duration at quantile q. Call it after Close
// for an answer covering every sample.
func (s Stats) Query(q float64) time.Duration {
	return time.Duration(s.stream.Query(q))
}

// Count reports how many samples have been folded into the stream.
func (s Stats) Count() int {
	return s.stream.Count()
}

// Close stops the collector and waits for buffered samples to be folded in.
// No Timer may Mark and no Observe may run after Close.
func (s Stats) Close() {
	close(s.samples)
	<-s.done
}
