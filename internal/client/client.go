// Package client is the client side of the EMS pipe protocol.
//
// Setup creates the client's two pipes, registers them on the server's
// well-known pipe and waits for a session worker to acknowledge. After
// that every call writes one request frame and reads its response on the
// dedicated pipe pair. A Client serializes its own calls.
package client

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/iliyamo/event-management-system/internal/pipe"
	"github.com/iliyamo/event-management-system/internal/protocol"
	"github.com/iliyamo/event-management-system/internal/store"
)

// ErrRequestFailed is returned when the server answers with a nonzero
// status. The reason is only recorded in the server log.
var ErrRequestFailed = errors.New("request failed")

// ErrClosed is returned by calls made after Quit.
var ErrClosed = errors.New("client closed")

// Client is one registered session.
type Client struct {
	mu           sync.Mutex
	requestPath  string
	responsePath string
	req          *os.File
	resp         *os.File
	sessionID    int32
	closed       bool
}

// Setup registers with the server listening on serverPath and returns
// once a worker has bound the session. It blocks while every worker is
// busy.
func Setup(requestPath, responsePath, serverPath string) (*Client, error) {
	frame, err := protocol.RegisterRequest{RequestPath: requestPath, ResponsePath: responsePath}.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if err := pipe.Create(requestPath, pipe.ClientMode); err != nil {
		return nil, err
	}
	if err := pipe.Create(responsePath, pipe.ClientMode); err != nil {
		pipe.Remove(requestPath)
		return nil, err
	}
	c := &Client{requestPath: requestPath, responsePath: responsePath}
	if err := c.register(serverPath, frame); err != nil {
		c.release()
		return nil, err
	}
	return c, nil
}

func (c *Client) register(serverPath string, frame []byte) error {
	server, err := pipe.Dial(serverPath)
	if err != nil {
		return err
	}
	_, err = server.Write(frame)
	server.Close()
	if err != nil {
		return fmt.Errorf("writing register frame: %w", err)
	}

	if c.req, err = pipe.OpenWrite(c.requestPath); err != nil {
		return err
	}
	if c.resp, err = pipe.OpenRead(c.responsePath); err != nil {
		return err
	}
	ack, err := protocol.ReadSessionAck(c.resp)
	if err != nil {
		return err
	}
	c.sessionID = ack.SessionID
	return nil
}

// SessionID is the id the server acknowledged.
func (c *Client) SessionID() int32 { return c.sessionID }

// Quit ends the session, closes both pipes and removes them.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	_, err := c.req.Write(protocol.QuitFrame())
	c.release()
	if err != nil {
		return fmt.Errorf("writing quit: %w", err)
	}
	return nil
}

func (c *Client) release() {
	c.closed = true
	if c.req != nil {
		c.req.Close()
	}
	if c.resp != nil {
		c.resp.Close()
	}
	pipe.Remove(c.requestPath)
	pipe.Remove(c.responsePath)
}

// Create asks the server to create an event with a rows x cols grid.
func (c *Client) Create(eventID uint32, rows, cols uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(protocol.CreateRequest{SessionID: c.sessionID, EventID: eventID, Rows: rows, Cols: cols}); err != nil {
		return err
	}
	resp, err := protocol.ReadStatusResponse(c.resp)
	if err != nil {
		return err
	}
	return statusError(resp.Status)
}

// Reserve claims every seat in seats under one reservation.
func (c *Client) Reserve(eventID uint32, seats []store.Seat) error {
	xs := make([]uint64, len(seats))
	ys := make([]uint64, len(seats))
	for i, s := range seats {
		xs[i], ys[i] = s.Row, s.Col
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(protocol.ReserveRequest{SessionID: c.sessionID, EventID: eventID, Xs: xs, Ys: ys}); err != nil {
		return err
	}
	resp, err := protocol.ReadStatusResponse(c.resp)
	if err != nil {
		return err
	}
	return statusError(resp.Status)
}

// Show returns a snapshot of an event's grid.
func (c *Client) Show(eventID uint32) (store.Grid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(protocol.ShowRequest{SessionID: c.sessionID, EventID: eventID}); err != nil {
		return store.Grid{}, err
	}
	resp, err := protocol.ReadShowResponse(c.resp)
	if err != nil {
		return store.Grid{}, err
	}
	if err := statusError(resp.Status); err != nil {
		return store.Grid{}, err
	}
	return store.Grid{EventID: eventID, Rows: resp.Rows, Cols: resp.Cols, Seats: resp.Seats}, nil
}

// ListEvents returns every event id in creation order.
func (c *Client) ListEvents() ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(protocol.ListRequest{SessionID: c.sessionID}); err != nil {
		return nil, err
	}
	resp, err := protocol.ReadListResponse(c.resp)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp.Status); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

func (c *Client) send(m encoding.BinaryMarshaler) error {
	if c.closed {
		return ErrClosed
	}
	if err := protocol.WriteFrame(c.req, m); err != nil {
		return fmt.Errorf("writing request: %w", err)
	}
	return nil
}

func statusError(status int32) error {
	if status != protocol.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRequestFailed, status)
	}
	return nil
}
