// Package server assembles the EMS server: the event store, the path
// queue, the host listener on the well-known pipe and the session pool.
// The store is built once here and handed to every component that needs
// it.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/iliyamo/event-management-system/internal/host"
	"github.com/iliyamo/event-management-system/internal/model"
	"github.com/iliyamo/event-management-system/internal/pathqueue"
	"github.com/iliyamo/event-management-system/internal/pipe"
	"github.com/iliyamo/event-management-system/internal/session"
	"github.com/iliyamo/event-management-system/internal/store"
)

// shutdownGrace bounds how long Run waits for the second component after
// the first one stops. A worker blocked opening a client's pipe cannot be
// interrupted, so Run does not wait for it forever.
const shutdownGrace = 5 * time.Second

// Options configures a Server.
type Options struct {
	PipePath    string
	AccessDelay time.Duration
	PoolSize    int
	DumpOut     io.Writer
	Directory   session.Directory
	Notifier    session.Notifier
}

// Server owns the well-known pipe for its lifetime.
type Server struct {
	opts     Options
	logger   *slog.Logger
	store    *store.Store
	paths    *pathqueue.Queue
	listener *host.Listener
	pool     *session.Pool
	pipe     *os.File
}

// New creates the server pipe and wires every component. It fails if the
// pipe cannot be created or opened.
func New(opts Options, logger *slog.Logger) (*Server, error) {
	if opts.PipePath == "" {
		return nil, errors.New("server pipe path is required")
	}
	if opts.PoolSize < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", opts.PoolSize)
	}
	if opts.DumpOut == nil {
		opts.DumpOut = os.Stdout
	}

	if err := pipe.Create(opts.PipePath, pipe.ServerMode); err != nil {
		return nil, err
	}
	f, err := pipe.OpenReadWrite(opts.PipePath)
	if err != nil {
		pipe.Remove(opts.PipePath)
		return nil, err
	}

	s := &Server{
		opts:   opts,
		logger: logger,
		store:  store.New(opts.AccessDelay),
		paths:  pathqueue.New(),
		pipe:   f,
	}
	s.listener = host.NewListener(f, s.paths, s.store, opts.DumpOut, logger.With("component", "host"))
	s.pool = session.NewPool(session.Config{
		Size:      opts.PoolSize,
		Store:     s.store,
		Paths:     s.paths,
		Directory: opts.Directory,
		Notifier:  opts.Notifier,
		Logger:    logger.With("component", "session"),
	})
	return s, nil
}

// Store returns the event store.
func (s *Server) Store() *store.Store { return s.store }

// Pool returns the session pool.
func (s *Server) Pool() *session.Pool { return s.pool }

// Listener returns the host listener.
func (s *Server) Listener() *host.Listener { return s.listener }

// Stats snapshots the counters shown on the ops status endpoint.
func (s *Server) Stats() model.ServerStats {
	ids, _ := s.store.List()
	return model.ServerStats{
		PoolSize:          s.pool.Size(),
		ActiveSessions:    s.pool.Active(),
		PendingHandshakes: s.paths.Len() / 2,
		Handshakes:        s.listener.Handshakes(),
		Events:            len(ids),
	}
}

// Run serves until ctx is cancelled (nil) or the listener or a session
// fails (the error). The server pipe is closed and removed on return.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.close()

	s.logger.Info("server started",
		"pipe", s.opts.PipePath,
		"pool_size", s.opts.PoolSize,
		"access_delay", s.opts.AccessDelay,
	)

	errs := make(chan error, 2)
	go func() { errs <- s.listener.Serve(ctx) }()
	go func() { errs <- s.pool.Run(ctx) }()

	first := <-errs
	cancel()
	select {
	case second := <-errs:
		if first == nil {
			first = second
		}
	case <-time.After(shutdownGrace):
		s.logger.Warn("shutdown grace period expired with a worker still blocked")
	}
	return first
}

func (s *Server) close() {
	if err := s.pipe.Close(); err != nil {
		s.logger.Warn("closing server pipe", "error", err)
	}
	if err := pipe.Remove(s.opts.PipePath); err != nil {
		s.logger.Warn("removing server pipe", "error", err)
	}
}
