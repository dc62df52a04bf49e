package station

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// queueMachine drives a queue through random enqueue/dequeue sequences,
// holding a plain slice as the FIFO model.
type queueMachine struct {
	q     *Queue   // queue being tested
	model []Client // expected contents, head first
	next  int      // id source
}

func (m *queueMachine) Init(t *rapid.T) {
	n := rapid.IntRange(1, 3).Draw(t, "capacity").(int)
	q, err := NewQueue(n)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	m.q = q
}

// Model of Enqueue. Enqueueing into a full queue blocks, so it is skipped
// rather than modeled.
func (m *queueMachine) Enqueue(t *rapid.T) {
	if len(m.model) == m.q.Capacity() {
		t.Skip("full")
	}

	m.next++
	c := Client{Name: "car", ID: m.next}

	depth, err := m.q.Enqueue(context.Background(), c)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	m.model = append(m.model, c)

	if depth != len(m.model) {
		t.Fatalf("enqueue depth %d, expected %d", depth, len(m.model))
	}
}

// Model of Dequeue. Dequeueing from an empty queue blocks, so it is skipped.
func (m *queueMachine) Dequeue(t *rapid.T) {
	if len(m.model) == 0 {
		t.Skip("empty")
	}

	c, depth, err := m.q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}

	if c.ID != m.model[0].ID {
		t.Fatalf("dequeued %d out of order, expected %d", c.ID, m.model[0].ID)
	}
	m.model = m.model[1:]

	if depth != len(m.model) {
		t.Fatalf("dequeue depth %d, expected %d", depth, len(m.model))
	}
}

// validate that invariants hold
func (m *queueMachine) Check(t *rapid.T) {
	occ := m.q.Occupancy()
	if occ != len(m.model) {
		t.Fatalf("occupancy %d, model has %d", occ, len(m.model))
	}
	if occ < 0 || occ > m.q.Capacity() {
		t.Fatalf("occupancy %d outside [0, %d]", occ, m.q.Capacity())
	}
	if filled, empty := m.q.filled.AvailablePermits(), m.q.empty.AvailablePermits(); filled+empty != m.q.Capacity() {
		t.Fatalf("slot accounting broken: filled %d + empty %d != capacity %d", filled, empty, m.q.Capacity())
	}
}

func TestQueueInvariants(t *testing.T) {
	rapid.Check(t, rapid.Run(&queueMachine{}))
}

func TestNewQueueRejectsInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		q, err := NewQueue(capacity)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
		assert.Nil(t, q)
	}
}

func TestQueueFIFOSingleProducer(t *testing.T) {
	q, err := NewQueue(5)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		depth, err := q.Enqueue(ctx, Client{Name: "car", ID: i})
		require.NoError(t, err)
		assert.Equal(t, i, depth)
	}

	for i := 1; i <= 5; i++ {
		c, _, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, c.ID)
	}
	assert.Equal(t, 0, q.Occupancy())
}

func TestEnqueueBlocksAtCapacityUntilDequeue(t *testing.T) {
	q, err := NewQueue(1)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = q.Enqueue(ctx, Client{Name: "car", ID: 1})
	require.NoError(t, err)

	enqueued := make(chan struct{})
	go func() {
		if _, err := q.Enqueue(ctx, Client{Name: "car", ID: 2}); err == nil {
			close(enqueued)
		}
	}()

	select {
	case <-enqueued:
		t.Fatal("enqueue succeeded on a full queue")
	case <-time.After(50 * time.Millisecond):
	}

	c, _, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)

	// One dequeue cycle must be enough to unblock the waiting producer.
	select {
	case <-enqueued:
	case <-time.After(time.Second):
		t.Fatal("blocked enqueue did not complete after a dequeue")
	}
	assert.Equal(t, 1, q.Occupancy())
}

func TestEnqueueCancelKeepsAccountingIntact(t *testing.T) {
	q, err := NewQueue(1)
	require.NoError(t, err)

	_, err = q.Enqueue(context.Background(), Client{Name: "car", ID: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(ctx, Client{Name: "car", ID: 2})
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled enqueue did not return")
	}

	// The abandoned enqueue must not have consumed a slot: the queue still
	// holds exactly one item and a full drain/refill cycle works.
	assert.Equal(t, 1, q.Occupancy())

	c, _, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)

	_, err = q.Enqueue(context.Background(), Client{Name: "car", ID: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Occupancy())
}

func TestDequeueCancelKeepsAccountingIntact(t *testing.T) {
	q, err := NewQueue(2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, _, err := q.Dequeue(ctx)
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled dequeue did not return")
	}

	_, err = q.Enqueue(context.Background(), Client{Name: "car", ID: 1})
	require.NoError(t, err)

	c, _, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, 0, q.Occupancy())
}
