package protocol

import (
	"encoding"
	"fmt"
	"io"
)

// SessionAck is the first message a worker writes on a freshly bound
// response pipe.
type SessionAck struct {
	SessionID int32
}

// StatusResponse answers create and reserve.
type StatusResponse struct {
	Status int32
}

// ShowResponse answers show. Rows, Cols and Seats are only on the wire
// when Status is StatusOK.
type ShowResponse struct {
	Status int32
	Rows   uint64
	Cols   uint64
	Seats  []uint32
}

// ListResponse answers list. IDs are only on the wire when Status is
// StatusOK.
type ListResponse struct {
	Status int32
	IDs    []uint32
}

// MarshalBinary encodes the acknowledgment.
func (m SessionAck) MarshalBinary() ([]byte, error) {
	return appendInt32(nil, m.SessionID), nil
}

// ReadSessionAck decodes the acknowledgment.
func ReadSessionAck(r io.Reader) (SessionAck, error) {
	var m SessionAck
	if err := readFields(r, &m.SessionID); err != nil {
		return m, fmt.Errorf("read session id: %w", err)
	}
	return m, nil
}

// MarshalBinary encodes a bare status.
func (m StatusResponse) MarshalBinary() ([]byte, error) {
	return appendInt32(nil, m.Status), nil
}

// ReadStatusResponse decodes a bare status.
func ReadStatusResponse(r io.Reader) (StatusResponse, error) {
	var m StatusResponse
	if err := readFields(r, &m.Status); err != nil {
		return m, fmt.Errorf("read status: %w", err)
	}
	return m, nil
}

// MarshalBinary encodes the show response. A failure carries the status
// alone.
func (m ShowResponse) MarshalBinary() ([]byte, error) {
	if m.Status != StatusOK {
		return appendInt32(nil, m.Status), nil
	}
	if uint64(len(m.Seats)) != m.Rows*m.Cols {
		return nil, fmt.Errorf("%w: %dx%d grid with %d seats", ErrMalformed, m.Rows, m.Cols, len(m.Seats))
	}
	b := make([]byte, 0, 4+8+8+4*len(m.Seats))
	b = appendInt32(b, m.Status)
	b = byteOrder.AppendUint64(b, m.Rows)
	b = byteOrder.AppendUint64(b, m.Cols)
	return appendUint32s(b, m.Seats), nil
}

// ReadShowResponse decodes a show response.
func ReadShowResponse(r io.Reader) (ShowResponse, error) {
	var m ShowResponse
	if err := readFields(r, &m.Status); err != nil {
		return m, fmt.Errorf("read status: %w", err)
	}
	if m.Status != StatusOK {
		return m, nil
	}
	if err := readFields(r, &m.Rows, &m.Cols); err != nil {
		return m, fmt.Errorf("read grid size: %w", err)
	}
	if m.Cols != 0 && m.Rows > MaxCount/m.Cols {
		return m, fmt.Errorf("%w: %dx%d grid", ErrMalformed, m.Rows, m.Cols)
	}
	m.Seats = make([]uint32, m.Rows*m.Cols)
	if err := readFields(r, m.Seats); err != nil {
		return m, fmt.Errorf("read seats: %w", err)
	}
	return m, nil
}

// MarshalBinary encodes the list response. A failure carries the status
// alone.
func (m ListResponse) MarshalBinary() ([]byte, error) {
	if m.Status != StatusOK {
		return appendInt32(nil, m.Status), nil
	}
	b := make([]byte, 0, 4+8+4*len(m.IDs))
	b = appendInt32(b, m.Status)
	b = byteOrder.AppendUint64(b, uint64(len(m.IDs)))
	return appendUint32s(b, m.IDs), nil
}

// ReadListResponse decodes a list response.
func ReadListResponse(r io.Reader) (ListResponse, error) {
	var m ListResponse
	var count uint64
	if err := readFields(r, &m.Status); err != nil {
		return m, fmt.Errorf("read status: %w", err)
	}
	if m.Status != StatusOK {
		return m, nil
	}
	if err := readFields(r, &count); err != nil {
		return m, fmt.Errorf("read event count: %w", err)
	}
	if count > MaxCount {
		return m, fmt.Errorf("%w: %d events", ErrMalformed, count)
	}
	m.IDs = make([]uint32, count)
	if err := readFields(r, m.IDs); err != nil {
		return m, fmt.Errorf("read event ids: %w", err)
	}
	return m, nil
}

// WriteFrame marshals m and writes it with a single Write call.
func WriteFrame(w io.Writer, m encoding.BinaryMarshaler) error {
	b, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
