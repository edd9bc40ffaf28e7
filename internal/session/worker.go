package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/event-management-system/internal/pathqueue"
	"github.com/iliyamo/event-management-system/internal/pipe"
	"github.com/iliyamo/event-management-system/internal/protocol"
	"github.com/iliyamo/event-management-system/internal/queue"
	"github.com/iliyamo/event-management-system/internal/store"
)

// errQuit ends an active session normally.
var errQuit = errors.New("client quit")

// ErrUnknownOp is returned when an active client sends an op-code the
// worker does not serve. The rest of the stream cannot be framed, so the
// session fails like any other malformed frame.
var ErrUnknownOp = errors.New("unknown op-code")

// work alternates the slot between idle and active until the path source
// closes or a fatal error occurs.
func (p *Pool) work(ctx context.Context, s *slot) error {
	for {
		requestPath, responsePath, err := p.paths.DequeuePair()
		if err != nil {
			if errors.Is(err, pathqueue.ErrClosed) {
				return nil
			}
			return fmt.Errorf("session %d: waiting for handshake: %w", s.id, err)
		}

		if err := p.bind(ctx, s, requestPath, responsePath); err != nil {
			p.unbind(ctx, s)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("session %d: %w", s.id, err)
		}

		err = p.serve(ctx, s)
		p.unbind(ctx, s)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("session %d: %w", s.id, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// bind opens the client's pipes, request side first to match the order
// in which the client opens them, and acknowledges with the slot id.
func (p *Pool) bind(ctx context.Context, s *slot, requestPath, responsePath string) error {
	req, err := pipe.OpenRead(requestPath)
	if err != nil {
		return err
	}
	p.mu.Lock()
	s.req = req
	s.requestPath = requestPath
	s.responsePath = responsePath
	s.active = true
	s.requests = 0
	p.mu.Unlock()

	resp, err := pipe.OpenWrite(responsePath)
	if err != nil {
		return err
	}
	p.mu.Lock()
	s.resp = resp
	s.boundAt = time.Now().UTC()
	p.mu.Unlock()

	if err := protocol.WriteFrame(resp, protocol.SessionAck{SessionID: s.id}); err != nil {
		return fmt.Errorf("writing session ack: %w", err)
	}

	p.logger.Info("session bound",
		"session", s.id,
		"request_pipe", requestPath,
		"response_pipe", responsePath,
	)
	if p.directory != nil {
		p.mu.Lock()
		record := s.describe()
		p.mu.Unlock()
		hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
		defer cancel()
		if err := p.directory.Bind(hookCtx, record); err != nil {
			p.logger.Warn("session directory bind failed", "session", s.id, "error", err)
		}
	}
	return nil
}

// unbind closes the pipes and returns the slot to idle.
func (p *Pool) unbind(ctx context.Context, s *slot) {
	p.mu.Lock()
	wasActive := s.active
	if s.req != nil {
		s.req.Close()
	}
	if s.resp != nil {
		s.resp.Close()
	}
	s.req, s.resp = nil, nil
	s.active = false
	s.requestPath, s.responsePath = "", ""
	s.boundAt = time.Time{}
	p.mu.Unlock()

	if !wasActive {
		return
	}
	p.logger.Info("session released", "session", s.id)
	if p.directory != nil {
		hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
		defer cancel()
		if err := p.directory.Release(hookCtx, s.id); err != nil {
			p.logger.Warn("session directory release failed", "session", s.id, "error", err)
		}
	}
}

// serve answers requests until quit (nil) or a pipe/protocol failure.
func (p *Pool) serve(ctx context.Context, s *slot) error {
	for {
		op, err := protocol.ReadOpCode(s.req)
		if err != nil {
			return fmt.Errorf("reading op-code: %w", err)
		}
		if err := p.dispatch(ctx, s, op); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return fmt.Errorf("%s: %w", protocol.OpName(op), err)
		}
		p.mu.Lock()
		s.requests++
		p.mu.Unlock()
	}
}

func (p *Pool) dispatch(ctx context.Context, s *slot, op byte) error {
	switch op {
	case protocol.OpQuit:
		return errQuit
	case protocol.OpCreate:
		return p.handleCreate(s)
	case protocol.OpReserve:
		return p.handleReserve(ctx, s)
	case protocol.OpShow:
		return p.handleShow(s)
	case protocol.OpList:
		return p.handleList(s)
	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, op)
	}
}

func (p *Pool) handleCreate(s *slot) error {
	m, err := protocol.ReadCreateRequest(s.req)
	if err != nil {
		return err
	}
	p.checkSessionID(s, m.SessionID)

	err = p.store.Create(m.EventID, m.Rows, m.Cols)
	if err != nil {
		p.logger.Info("create rejected", "session", s.id, "event", m.EventID, "rows", m.Rows, "cols", m.Cols, "error", err)
	} else {
		p.logger.Debug("event created", "session", s.id, "event", m.EventID, "rows", m.Rows, "cols", m.Cols)
	}
	return protocol.WriteFrame(s.resp, protocol.StatusResponse{Status: protocol.StatusFromError(err)})
}

func (p *Pool) handleReserve(ctx context.Context, s *slot) error {
	m, err := protocol.ReadReserveRequest(s.req)
	if err != nil {
		return err
	}
	p.checkSessionID(s, m.SessionID)

	seats := make([]store.Seat, len(m.Xs))
	for i := range seats {
		seats[i] = store.Seat{Row: m.Xs[i], Col: m.Ys[i]}
	}
	reservationID, err := p.store.Reserve(m.EventID, seats)
	if err != nil {
		p.logger.Info("reserve rejected", "session", s.id, "event", m.EventID, "seats", len(seats), "error", err)
	} else {
		p.logger.Debug("seats reserved", "session", s.id, "event", m.EventID, "reservation", reservationID, "seats", len(seats))
	}
	if werr := protocol.WriteFrame(s.resp, protocol.StatusResponse{Status: protocol.StatusFromError(err)}); werr != nil {
		return werr
	}
	if err == nil {
		p.notifyReservation(ctx, s, m, reservationID)
	}
	return nil
}

func (p *Pool) handleShow(s *slot) error {
	m, err := protocol.ReadShowRequest(s.req)
	if err != nil {
		return err
	}
	p.checkSessionID(s, m.SessionID)

	grid, err := p.store.Show(m.EventID)
	if err != nil {
		p.logger.Info("show rejected", "session", s.id, "event", m.EventID, "error", err)
		return protocol.WriteFrame(s.resp, protocol.ShowResponse{Status: protocol.StatusFailure})
	}
	return protocol.WriteFrame(s.resp, protocol.ShowResponse{
		Status: protocol.StatusOK,
		Rows:   grid.Rows,
		Cols:   grid.Cols,
		Seats:  grid.Seats,
	})
}

func (p *Pool) handleList(s *slot) error {
	m, err := protocol.ReadListRequest(s.req)
	if err != nil {
		return err
	}
	p.checkSessionID(s, m.SessionID)

	ids, err := p.store.List()
	if err != nil {
		p.logger.Info("list rejected", "session", s.id, "error", err)
		return protocol.WriteFrame(s.resp, protocol.ListResponse{Status: protocol.StatusFailure})
	}
	return protocol.WriteFrame(s.resp, protocol.ListResponse{Status: protocol.StatusOK, IDs: ids})
}

// checkSessionID logs requests that carry another session's id. The id
// is advisory; the pipe pair already identifies the client.
func (p *Pool) checkSessionID(s *slot, got int32) {
	if got != s.id {
		p.logger.Warn("request carries foreign session id", "session", s.id, "request_session", got)
	}
}

func (p *Pool) notifyReservation(ctx context.Context, s *slot, m protocol.ReserveRequest, reservationID uint32) {
	if p.notifier == nil {
		return
	}
	seats := make([][2]uint64, len(m.Xs))
	for i := range seats {
		seats[i] = [2]uint64{m.Xs[i], m.Ys[i]}
	}
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()
	err := p.notifier.PublishReservationConfirmed(hookCtx, queue.ReservationConfirmedEvent{
		EventID:       m.EventID,
		ReservationID: reservationID,
		SessionID:     s.id,
		Seats:         seats,
		ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Warn("reservation notification failed", "session", s.id, "event", m.EventID, "error", err)
	}
}
