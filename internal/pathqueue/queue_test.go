package pathqueue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-management-system/internal/testutil"
)

func TestFIFOOrder(t *testing.T) {
	q := New()
	q.Enqueue("a")
	q.Enqueue("b")
	q.EnqueuePair("c", "d")
	assert.Equal(t, 4, q.Len())

	for _, want := range []string{"a", "b", "c", "d"} {
		got, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, q.Len())
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	got := make(chan string, 1)
	go func() {
		p, err := q.Dequeue()
		if err == nil {
			got <- p
		}
	}()

	testutil.RequireBlocked(t, got, 50*time.Millisecond, "dequeue on empty queue")
	q.Enqueue("/tmp/req")
	assert.Equal(t, "/tmp/req", testutil.RequireReceive(t, got, 5*time.Second, "dequeue after enqueue"))
}

func TestDequeuePairWaitsForSecondHalf(t *testing.T) {
	q := New()
	type pair struct{ req, resp string }
	got := make(chan pair, 1)
	go func() {
		req, resp, err := q.DequeuePair()
		if err == nil {
			got <- pair{req, resp}
		}
	}()

	q.Enqueue("req")
	testutil.RequireBlocked(t, got, 50*time.Millisecond, "pair with only one path")
	q.Enqueue("resp")
	assert.Equal(t, pair{"req", "resp"}, testutil.RequireReceive(t, got, 5*time.Second, "pair"))
}

func TestConcurrentConsumersKeepPairsIntact(t *testing.T) {
	const handshakes = 200
	q := New()

	var mu sync.Mutex
	seen := make(map[string]string)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				req, resp, err := q.DequeuePair()
				if err != nil {
					return
				}
				mu.Lock()
				seen[req] = resp
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < handshakes; i++ {
		q.EnqueuePair(fmt.Sprintf("req-%d", i), fmt.Sprintf("resp-%d", i))
	}
	require.Eventually(t, func() bool { return q.Len() == 0 }, 5*time.Second, time.Millisecond)
	q.Close()
	wg.Wait()

	require.Len(t, seen, handshakes)
	for i := 0; i < handshakes; i++ {
		assert.Equal(t, fmt.Sprintf("resp-%d", i), seen[fmt.Sprintf("req-%d", i)])
	}
}

func TestCloseWakesConsumers(t *testing.T) {
	q := New()
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := q.Dequeue()
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	q.Close()
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, testutil.RequireReceive(t, errs, 5*time.Second, "consumer %d", i), ErrClosed)
	}
}

func TestCloseDrainsRemainingPaths(t *testing.T) {
	q := New()
	q.EnqueuePair("req", "resp")
	q.Close()

	req, resp, err := q.DequeuePair()
	require.NoError(t, err)
	assert.Equal(t, "req", req)
	assert.Equal(t, "resp", resp)

	_, err = q.Dequeue()
	require.ErrorIs(t, err, ErrClosed)
}
