package store

import "sync"

// MaxSeats caps the number of seats in a single event grid and the number
// of seats a single reservation may name. Grids larger than this are
// refused with ErrAllocationFailed instead of letting make panic.
const MaxSeats = 1 << 24

// Seat is a 1-based (row, column) coordinate.
type Seat struct {
	Row uint64
	Col uint64
}

// Event is one seat grid. The mutex guards data and reservations; id,
// rows and cols never change after Create.
//
// Fields:
//
//	id           – caller-assigned event identifier.
//	rows, cols   – grid dimensions.
//	data         – row-major seat values; 0 is free, otherwise the
//	               reservation id that claimed the seat.
//	reservations – last reservation id handed out for this event.
type Event struct {
	id   uint32
	rows uint64
	cols uint64

	mu           sync.Mutex
	data         []uint32
	reservations uint32
}

// Grid is a point-in-time copy of an event's seats.
type Grid struct {
	EventID uint32   `json:"event_id"`
	Rows    uint64   `json:"rows"`
	Cols    uint64   `json:"cols"`
	Seats   []uint32 `json:"seats"`
}

// At returns the value of the seat at 1-based (row, col).
func (g Grid) At(row, col uint64) uint32 {
	return g.Seats[seatIndex(g.Cols, row, col)]
}

// seatIndex linearizes a 1-based coordinate. The caller has already
// checked that the coordinate lies inside the grid.
func seatIndex(cols, row, col uint64) uint64 {
	return (row-1)*cols + (col - 1)
}

func (e *Event) inBounds(s Seat) bool {
	return s.Row >= 1 && s.Row <= e.rows && s.Col >= 1 && s.Col <= e.cols
}

// reserve validates every seat before touching the grid so a failed call
// leaves no partial claim behind. Callers hold e.mu.
func (e *Event) reserve(seats []Seat) (uint32, error) {
	for _, s := range seats {
		if !e.inBounds(s) {
			return 0, ErrOutOfBounds
		}
	}
	for _, s := range seats {
		if e.data[seatIndex(e.cols, s.Row, s.Col)] != 0 {
			return 0, ErrSeatTaken
		}
	}
	e.reservations++
	id := e.reservations
	for _, s := range seats {
		e.data[seatIndex(e.cols, s.Row, s.Col)] = id
	}
	return id, nil
}

// snapshot copies the grid. Callers hold e.mu.
func (e *Event) snapshot() Grid {
	seats := make([]uint32, len(e.data))
	copy(seats, e.data)
	return Grid{EventID: e.id, Rows: e.rows, Cols: e.cols, Seats: seats}
}
