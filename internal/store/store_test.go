package store

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Create(1, 2, 2))
	require.NoError(t, s.Create(2, 3, 3))

	err := s.Create(1, 5, 5)
	require.ErrorIs(t, err, ErrAlreadyExists)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, ids)

	g, err := s.Show(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g.Rows, "rejected create must not replace the grid")
	assert.Equal(t, uint64(2), g.Cols)
}

func TestCreateDimensions(t *testing.T) {
	s := New(0)
	tests := []struct {
		name       string
		rows, cols uint64
		wantErr    error
	}{
		{"zero rows", 0, 4, ErrInvalidDimensions},
		{"zero cols", 4, 0, ErrInvalidDimensions},
		{"too large", MaxSeats, 2, ErrAllocationFailed},
		{"overflow", 1 << 63, 4, ErrAllocationFailed},
		{"ok", 10, 20, nil},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Create(uint32(100+i), tt.rows, tt.cols)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []uint32{104}, ids, "failed creates must leave the store unchanged")
}

func TestListKeepsInsertionOrder(t *testing.T) {
	s := New(0)
	for _, id := range []uint32{5, 2, 9} {
		require.NoError(t, s.Create(id, 1, 1))
	}
	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 2, 9}, ids)
}

func TestListEmpty(t *testing.T) {
	ids, err := New(0).List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReserveScenario(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Create(1, 2, 2))

	rid, err := s.Reserve(1, []Seat{{1, 1}, {2, 2}})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rid)

	_, err = s.Reserve(1, []Seat{{1, 1}})
	require.ErrorIs(t, err, ErrSeatTaken)

	g, err := s.Show(1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 0, 0, 1}, g.Seats)
	assert.Equal(t, uint32(1), g.At(1, 1))
	assert.Equal(t, uint32(0), g.At(1, 2))
}

func TestReserveIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		seats   []Seat
		wantErr error
	}{
		{"row zero", []Seat{{1, 2}, {0, 1}}, ErrOutOfBounds},
		{"col past end", []Seat{{1, 2}, {2, 4}}, ErrOutOfBounds},
		{"row past end", []Seat{{3, 1}}, ErrOutOfBounds},
		{"one taken", []Seat{{1, 2}, {2, 3}, {1, 1}}, ErrSeatTaken},
		{"empty", nil, ErrNoSeats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(0)
			require.NoError(t, s.Create(7, 2, 3))
			_, err := s.Reserve(7, []Seat{{1, 1}})
			require.NoError(t, err)
			before, err := s.Show(7)
			require.NoError(t, err)

			_, err = s.Reserve(7, tt.seats)
			require.ErrorIs(t, err, tt.wantErr)

			after, err := s.Show(7)
			require.NoError(t, err)
			assert.Equal(t, before.Seats, after.Seats)

			// A failed reserve must not burn a reservation id.
			rid, err := s.Reserve(7, []Seat{{2, 1}})
			require.NoError(t, err)
			assert.Equal(t, uint32(2), rid)
		})
	}
}

func TestReserveUnknownEvent(t *testing.T) {
	s := New(0)
	_, err := s.Reserve(42, []Seat{{1, 1}})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Show(42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNilStore(t *testing.T) {
	var s *Store
	require.ErrorIs(t, s.Create(1, 1, 1), ErrNotInitialized)
	_, err := s.Reserve(1, []Seat{{1, 1}})
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.Show(1)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.List()
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, s.DumpAll(&bytes.Buffer{}), ErrNotInitialized)
}

func TestConcurrentDisjointReserves(t *testing.T) {
	s := New(time.Millisecond)
	require.NoError(t, s.Create(1, 4, 4))

	var wg sync.WaitGroup
	ids := make([]uint32, 2)
	errs := make([]error, 2)
	claims := [][]Seat{
		{{1, 1}, {1, 2}},
		{{4, 3}, {4, 4}},
	}
	for i := range claims {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = s.Reserve(1, claims[i])
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, ids[0], ids[1])

	g, err := s.Show(1)
	require.NoError(t, err)
	for i, claim := range claims {
		for _, seat := range claim {
			assert.Equal(t, ids[i], g.At(seat.Row, seat.Col))
		}
	}
}

func TestConcurrentOverlappingReserves(t *testing.T) {
	for round := 0; round < 50; round++ {
		s := New(0)
		require.NoError(t, s.Create(1, 3, 3))

		start := make(chan struct{})
		var wg sync.WaitGroup
		ids := make([]uint32, 2)
		errs := make([]error, 2)
		claims := [][]Seat{
			{{1, 1}, {2, 2}},
			{{2, 2}, {3, 3}},
		}
		for i := range claims {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				ids[i], errs[i] = s.Reserve(1, claims[i])
			}(i)
		}
		close(start)
		wg.Wait()

		winner := -1
		for i, err := range errs {
			if err == nil {
				require.Equal(t, -1, winner, "both overlapping reservations succeeded")
				winner = i
				continue
			}
			require.True(t, errors.Is(err, ErrSeatTaken), "unexpected error %v", err)
		}
		require.NotEqual(t, -1, winner, "neither reservation succeeded")

		g, err := s.Show(1)
		require.NoError(t, err)
		assert.Equal(t, ids[winner], g.At(2, 2))
		loser := claims[1-winner]
		for _, seat := range loser {
			if seat == (Seat{2, 2}) {
				continue
			}
			assert.Zero(t, g.At(seat.Row, seat.Col), "losing reservation left a partial claim")
		}
	}
}

func TestShowMatchesUnionOfReservations(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Create(3, 3, 4))

	want := make([]uint32, 12)
	claims := [][]Seat{{{1, 1}}, {{2, 2}, {2, 3}}, {{3, 4}, {1, 4}, {3, 1}}}
	for _, claim := range claims {
		rid, err := s.Reserve(3, claim)
		require.NoError(t, err)
		for _, seat := range claim {
			want[seatIndex(4, seat.Row, seat.Col)] = rid
		}
	}
	g, err := s.Show(3)
	require.NoError(t, err)
	assert.Equal(t, want, g.Seats)
}

func TestCreateNotBlockedByBusyEvent(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Create(1, 1, 1))
	ev, err := s.lookup(1)
	require.NoError(t, err)

	ev.mu.Lock()
	done := make(chan error, 1)
	go func() { done <- s.Create(2, 1, 1) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("create blocked behind an event lock")
	}
	ev.mu.Unlock()
}

func TestDumpAll(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Create(1, 2, 2))
	require.NoError(t, s.Create(9, 1, 3))
	_, err := s.Reserve(1, []Seat{{1, 1}, {2, 2}})
	require.NoError(t, err)
	_, err = s.Reserve(9, []Seat{{1, 3}})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, s.DumpAll(&out))
	assert.Equal(t, "1\n1 0\n0 1\n\n9\n0 0 1\n\n", out.String())
}

func TestSnapshots(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Create(4, 1, 2))
	require.NoError(t, s.Create(3, 1, 1))
	_, err := s.Reserve(4, []Seat{{1, 2}})
	require.NoError(t, err)

	grids, err := s.Snapshots()
	require.NoError(t, err)
	require.Len(t, grids, 2)
	assert.Equal(t, uint32(4), grids[0].EventID)
	assert.Equal(t, []uint32{0, 1}, grids[0].Seats)
	assert.Equal(t, uint32(3), grids[1].EventID)
}

func TestAccessDelayAppliedToEveryOperation(t *testing.T) {
	const delay = 50 * time.Millisecond
	s := New(delay)
	assert.Equal(t, delay, s.AccessDelay())

	timed := func(name string, op func() error) {
		t.Helper()
		start := time.Now()
		require.NoError(t, op(), name)
		assert.GreaterOrEqual(t, time.Since(start), delay, name)
	}
	timed("create", func() error { return s.Create(1, 2, 2) })
	timed("reserve", func() error {
		_, err := s.Reserve(1, []Seat{{1, 1}})
		return err
	})
	timed("show", func() error {
		_, err := s.Show(1)
		return err
	})
	timed("list", func() error {
		_, err := s.List()
		return err
	})
}

func TestZeroAccessDelay(t *testing.T) {
	s := New(0)
	assert.Zero(t, s.AccessDelay())
	var nilStore *Store
	assert.Zero(t, nilStore.AccessDelay())
}
