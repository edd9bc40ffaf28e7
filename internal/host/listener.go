// Package host runs the listener that owns the server's well-known pipe.
//
// Clients register by writing a register frame to that pipe; the listener
// queues the request and response paths for the session workers. Between
// frames it also runs the operator's diagnostic dump when one has been
// requested.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/iliyamo/event-management-system/internal/protocol"
)

// Pipe is the server end of the well-known pipe. *os.File opened on a
// FIFO satisfies it.
type Pipe interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// Enqueuer receives the paths of each handshake.
type Enqueuer interface {
	EnqueuePair(requestPath, responsePath string)
}

// Dumper prints the full contents of the event store.
type Dumper interface {
	DumpAll(w io.Writer) error
}

// Listener reads handshakes from the server pipe.
type Listener struct {
	pipe    Pipe
	queue   Enqueuer
	dumper  Dumper
	dumpOut io.Writer
	logger  *slog.Logger

	dumpRequested atomic.Bool

	// mu guards awaitingOp and every SetReadDeadline call. A dump request
	// only cuts the read short while the listener is waiting for an
	// op-code, never in the middle of a frame.
	mu         sync.Mutex
	awaitingOp bool

	handshakes atomic.Uint64
}

// NewListener builds a listener. Dumps are written to dumpOut.
func NewListener(pipe Pipe, queue Enqueuer, dumper Dumper, dumpOut io.Writer, logger *slog.Logger) *Listener {
	return &Listener{
		pipe:    pipe,
		queue:   queue,
		dumper:  dumper,
		dumpOut: dumpOut,
		logger:  logger,
	}
}

// RequestDump flags a diagnostic dump. It is safe to call from any
// goroutine; the dump itself runs on the listener goroutine before the
// next frame is read.
func (l *Listener) RequestDump() {
	l.dumpRequested.Store(true)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.awaitingOp {
		l.pipe.SetReadDeadline(time.Now())
	}
}

// Handshakes reports how many register frames have been queued.
func (l *Listener) Handshakes() uint64 {
	return l.handshakes.Load()
}

// Serve runs until ctx is cancelled, which returns nil, or the server
// pipe fails, which returns the read error. Unknown op-codes are logged
// and skipped.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.pipe.SetReadDeadline(time.Now())
	})
	defer stop()

	l.logger.Info("host listener started")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if l.dumpRequested.Swap(false) {
			l.dump()
		}

		if !l.beginWait(ctx) {
			continue
		}
		op, err := protocol.ReadOpCode(l.pipe)
		l.endWait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if interrupted(err) {
				continue
			}
			return fmt.Errorf("reading server pipe: %w", err)
		}

		switch op {
		case protocol.OpRegister:
			req, err := protocol.ReadRegisterRequest(l.pipe)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("reading register frame: %w", err)
			}
			l.queue.EnqueuePair(req.RequestPath, req.ResponsePath)
			l.handshakes.Add(1)
			l.logger.Debug("handshake queued",
				"request_pipe", req.RequestPath,
				"response_pipe", req.ResponsePath,
			)
		default:
			l.logger.Warn("unknown op-code on server pipe", "op", fmt.Sprintf("%q", op))
		}
	}
}

// beginWait marks the listener as waiting for an op-code. It reports
// false when a dump or shutdown slipped in after the top-of-loop check,
// so the loop goes around again instead of blocking.
func (l *Listener) beginWait(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dumpRequested.Load() || ctx.Err() != nil {
		return false
	}
	l.awaitingOp = true
	l.pipe.SetReadDeadline(time.Time{})
	return true
}

// endWait clears the waiting flag and any deadline a dump request set
// after the op-code arrived, so the rest of the frame reads normally.
func (l *Listener) endWait(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.awaitingOp = false
	if ctx.Err() == nil {
		l.pipe.SetReadDeadline(time.Time{})
	}
}

func (l *Listener) dump() {
	l.logger.Info("dumping event store")
	if err := l.dumper.DumpAll(l.dumpOut); err != nil {
		l.logger.Error("failed to dump events", "error", err)
	}
}

// interrupted separates a read cut short by a dump request from a broken
// pipe.
func interrupted(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, syscall.EINTR)
}
