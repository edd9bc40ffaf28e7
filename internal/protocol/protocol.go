// Package protocol implements the binary frames exchanged over the EMS
// named pipes.
//
// Every request starts with a single ASCII op-code byte followed by
// fixed-width little-endian fields. Variable-length sections (the seat
// arrays of reserve, the grid of a show response, the id list of a list
// response) are sized by the count field that precedes them, and the
// receiver always reads exactly that many bytes before interpreting them.
//
// Frames are built in memory and handed to the pipe with a single Write
// so that a frame is never interleaved with another writer's bytes on the
// shared server pipe.
package protocol

import (
	"encoding/binary"
	"errors"
)

// Op-codes. The values are the ASCII digits used by existing clients.
const (
	OpRegister byte = '1'
	OpQuit     byte = '2'
	OpCreate   byte = '3'
	OpReserve  byte = '4'
	OpShow     byte = '5'
	OpList     byte = '6'
)

// PipePathSize is the fixed size of a pipe path on the wire. Paths are
// NUL-padded, so the longest usable path is PipePathSize-1 bytes.
const PipePathSize = 40

// MaxCount bounds every count field. A larger count is treated as a
// malformed frame rather than an allocation request.
const MaxCount = 1 << 24

// Status codes carried in responses.
const (
	StatusOK      int32 = 0
	StatusFailure int32 = 1
)

var byteOrder = binary.LittleEndian

// ErrPathTooLong is returned when a pipe path does not fit in the fixed
// wire buffer.
var ErrPathTooLong = errors.New("pipe path too long")

// ErrMalformed is returned when a decoded frame is internally
// inconsistent, such as a count beyond MaxCount.
var ErrMalformed = errors.New("malformed frame")

// OpName returns a short name for logging.
func OpName(op byte) string {
	switch op {
	case OpRegister:
		return "register"
	case OpQuit:
		return "quit"
	case OpCreate:
		return "create"
	case OpReserve:
		return "reserve"
	case OpShow:
		return "show"
	case OpList:
		return "list"
	default:
		return "unknown"
	}
}

// StatusFromError maps an operation result to its wire status.
func StatusFromError(err error) int32 {
	if err != nil {
		return StatusFailure
	}
	return StatusOK
}
