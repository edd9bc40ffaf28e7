package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// RegisterRequest asks the host listener to bind a worker to the client's
// request and response pipes.
type RegisterRequest struct {
	RequestPath  string
	ResponsePath string
}

// CreateRequest creates an event with a rows x cols grid.
type CreateRequest struct {
	SessionID int32
	EventID   uint32
	Rows      uint64
	Cols      uint64
}

// ReserveRequest claims the seats (Xs[i], Ys[i]) of an event. Xs holds
// 1-based rows and Ys 1-based columns; both have the same length.
type ReserveRequest struct {
	SessionID int32
	EventID   uint32
	Xs        []uint64
	Ys        []uint64
}

// ShowRequest asks for a snapshot of one event's grid.
type ShowRequest struct {
	SessionID int32
	EventID   uint32
}

// ListRequest asks for every event id in creation order.
type ListRequest struct {
	SessionID int32
}

// ReadOpCode reads the single op-code byte that starts every request.
func ReadOpCode(r io.Reader) (byte, error) {
	var op [1]byte
	if _, err := io.ReadFull(r, op[:]); err != nil {
		return 0, err
	}
	return op[0], nil
}

// MarshalBinary encodes the register frame including its op-code.
func (m RegisterRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 1+2*PipePathSize)
	b = append(b, OpRegister)
	b, err := appendPath(b, m.RequestPath)
	if err != nil {
		return nil, err
	}
	return appendPath(b, m.ResponsePath)
}

// ReadRegisterRequest decodes a register payload; the op-code has already
// been consumed.
func ReadRegisterRequest(r io.Reader) (RegisterRequest, error) {
	var m RegisterRequest
	var err error
	if m.RequestPath, err = readPath(r); err != nil {
		return m, fmt.Errorf("read request path: %w", err)
	}
	if m.ResponsePath, err = readPath(r); err != nil {
		return m, fmt.Errorf("read response path: %w", err)
	}
	return m, nil
}

// QuitFrame returns the quit request.
func QuitFrame() []byte { return []byte{OpQuit} }

// MarshalBinary encodes the create frame including its op-code.
func (m CreateRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 1+4+4+8+8)
	b = append(b, OpCreate)
	b = appendInt32(b, m.SessionID)
	b = byteOrder.AppendUint32(b, m.EventID)
	b = byteOrder.AppendUint64(b, m.Rows)
	return byteOrder.AppendUint64(b, m.Cols), nil
}

// ReadCreateRequest decodes a create payload.
func ReadCreateRequest(r io.Reader) (CreateRequest, error) {
	var m CreateRequest
	if err := readFields(r, &m.SessionID, &m.EventID, &m.Rows, &m.Cols); err != nil {
		return m, fmt.Errorf("read create request: %w", err)
	}
	return m, nil
}

// MarshalBinary encodes the reserve frame including its op-code.
func (m ReserveRequest) MarshalBinary() ([]byte, error) {
	if len(m.Xs) != len(m.Ys) {
		return nil, fmt.Errorf("%w: %d rows but %d columns", ErrMalformed, len(m.Xs), len(m.Ys))
	}
	if len(m.Xs) > MaxCount {
		return nil, fmt.Errorf("%w: %d seats", ErrMalformed, len(m.Xs))
	}
	b := make([]byte, 0, 1+4+4+8+16*len(m.Xs))
	b = append(b, OpReserve)
	b = appendInt32(b, m.SessionID)
	b = byteOrder.AppendUint32(b, m.EventID)
	b = byteOrder.AppendUint64(b, uint64(len(m.Xs)))
	b = appendUint64s(b, m.Xs)
	return appendUint64s(b, m.Ys), nil
}

// ReadReserveRequest decodes a reserve payload.
func ReadReserveRequest(r io.Reader) (ReserveRequest, error) {
	var m ReserveRequest
	var count uint64
	if err := readFields(r, &m.SessionID, &m.EventID, &count); err != nil {
		return m, fmt.Errorf("read reserve request: %w", err)
	}
	if count > MaxCount {
		return m, fmt.Errorf("%w: reserve of %d seats", ErrMalformed, count)
	}
	m.Xs = make([]uint64, count)
	m.Ys = make([]uint64, count)
	if err := readFields(r, m.Xs, m.Ys); err != nil {
		return m, fmt.Errorf("read reserve seats: %w", err)
	}
	return m, nil
}

// MarshalBinary encodes the show frame including its op-code.
func (m ShowRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 1+4+4)
	b = append(b, OpShow)
	b = appendInt32(b, m.SessionID)
	return byteOrder.AppendUint32(b, m.EventID), nil
}

// ReadShowRequest decodes a show payload.
func ReadShowRequest(r io.Reader) (ShowRequest, error) {
	var m ShowRequest
	if err := readFields(r, &m.SessionID, &m.EventID); err != nil {
		return m, fmt.Errorf("read show request: %w", err)
	}
	return m, nil
}

// MarshalBinary encodes the list frame including its op-code.
func (m ListRequest) MarshalBinary() ([]byte, error) {
	return appendInt32([]byte{OpList}, m.SessionID), nil
}

// ReadListRequest decodes a list payload.
func ReadListRequest(r io.Reader) (ListRequest, error) {
	var m ListRequest
	if err := readFields(r, &m.SessionID); err != nil {
		return m, fmt.Errorf("read list request: %w", err)
	}
	return m, nil
}

// readFields reads each fixed-size value in order. binary.Read uses
// io.ReadFull, so short reads surface as io.ErrUnexpectedEOF.
func readFields(r io.Reader, fields ...any) error {
	for _, f := range fields {
		if err := binary.Read(r, byteOrder, f); err != nil {
			return err
		}
	}
	return nil
}

func appendInt32(b []byte, v int32) []byte { return byteOrder.AppendUint32(b, uint32(v)) }

func appendUint32s(b []byte, vs []uint32) []byte {
	for _, v := range vs {
		b = byteOrder.AppendUint32(b, v)
	}
	return b
}

func appendUint64s(b []byte, vs []uint64) []byte {
	for _, v := range vs {
		b = byteOrder.AppendUint64(b, v)
	}
	return b
}

// appendPath appends path NUL-padded to PipePathSize bytes. The last
// byte is always NUL.
func appendPath(b []byte, path string) ([]byte, error) {
	if len(path) >= PipePathSize {
		return nil, fmt.Errorf("%w: %q is %d bytes, limit %d", ErrPathTooLong, path, len(path), PipePathSize-1)
	}
	var field [PipePathSize]byte
	copy(field[:], path)
	return append(b, field[:]...), nil
}

func readPath(r io.Reader) (string, error) {
	var field [PipePathSize]byte
	if _, err := io.ReadFull(r, field[:]); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(field[:], 0); i >= 0 {
		return string(field[:i]), nil
	}
	return string(field[:]), nil
}
