// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationQueue is the durable queue reservation events are published
// to and consumed from.
const ReservationQueue = "reservation.confirmed"

// ReservationConfirmedEvent is published when a reserve request succeeds.
// It carries everything downstream consumers need to log or audit the
// claim without asking the server for the grid.
type ReservationConfirmedEvent struct {
	EventID       uint32      `json:"event_id"`
	ReservationID uint32      `json:"reservation_id"`
	SessionID     int32       `json:"session_id"`
	Seats         [][2]uint64 `json:"seats"`
	ConfirmedAt   string      `json:"confirmed_at"`
}
