package model

import "time"

// Session states.
const (
	SessionIdle   = "IDLE"
	SessionActive = "ACTIVE"
)

// Session describes one worker slot of the session pool as seen by
// operators. A slot is never destroyed; it alternates between IDLE and
// ACTIVE for the life of the server.
//
// Fields:
//
//	ID           – stable slot index, also the id acknowledged to clients.
//	State        – IDLE or ACTIVE.
//	RequestPath  – pipe the client writes requests to (ACTIVE only).
//	ResponsePath – pipe the worker writes responses to (ACTIVE only).
//	BoundAt      – when the current client was acknowledged (ACTIVE only).
//	Requests     – requests served for the current client.
type Session struct {
	ID           int32     `json:"id"`
	State        string    `json:"state"`
	RequestPath  string    `json:"request_path,omitempty"`
	ResponsePath string    `json:"response_path,omitempty"`
	BoundAt      time.Time `json:"bound_at,omitempty"`
	Requests     uint64    `json:"requests"`
}

// ServerStats summarizes the running server for operators.
type ServerStats struct {
	PoolSize          int    `json:"pool_size"`
	ActiveSessions    int    `json:"active_sessions"`
	PendingHandshakes int    `json:"pending_handshakes"`
	Handshakes        uint64 `json:"handshakes"`
	Events            int    `json:"events"`
}
