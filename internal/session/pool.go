// Package session runs the fixed pool of session workers.
//
// Each worker owns one slot for the life of the server. While idle it
// takes a handshake's two pipe paths from the path queue, opens them and
// acknowledges the client with its slot index; while active it serves
// that client's requests until the client sends quit.
//
// A pipe or protocol failure on any session is returned from Run and is
// fatal to the server: there is no per-session recovery.
package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/event-management-system/internal/model"
	"github.com/iliyamo/event-management-system/internal/queue"
	"github.com/iliyamo/event-management-system/internal/store"
)

// EventStore is the subset of *store.Store the workers call.
type EventStore interface {
	Create(id uint32, rows, cols uint64) error
	Reserve(id uint32, seats []store.Seat) (uint32, error)
	Show(id uint32) (store.Grid, error)
	List() ([]uint32, error)
}

// PathSource hands out handshakes. *pathqueue.Queue satisfies it.
type PathSource interface {
	DequeuePair() (requestPath, responsePath string, err error)
	Close()
}

// Directory mirrors bound sessions somewhere operators can see them.
// Failures are logged and never affect the client.
type Directory interface {
	Bind(ctx context.Context, s model.Session) error
	Release(ctx context.Context, id int32) error
}

// Notifier is told about every successful reservation. Failures are
// logged and never affect the client.
type Notifier interface {
	PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

// Config carries the pool's collaborators. Directory and Notifier are
// optional.
type Config struct {
	Size      int
	Store     EventStore
	Paths     PathSource
	Directory Directory
	Notifier  Notifier
	Logger    *slog.Logger
}

// hookTimeout bounds each Directory and Notifier call so a slow broker
// cannot stall a client.
const hookTimeout = 2 * time.Second

// slot is the worker-owned state of one session. The pool mutex guards
// the fields read by Sessions; req and resp are touched only by the
// owning worker and by closeActive during shutdown.
type slot struct {
	id           int32
	active       bool
	requestPath  string
	responsePath string
	boundAt      time.Time
	requests     uint64
	req          io.ReadCloser
	resp         io.WriteCloser
}

// Pool is the fixed set of session workers.
type Pool struct {
	store     EventStore
	paths     PathSource
	directory Directory
	notifier  Notifier
	logger    *slog.Logger

	mu    sync.Mutex
	slots []*slot
}

// NewPool builds a pool of cfg.Size idle sessions with ids 0..Size-1.
func NewPool(cfg Config) *Pool {
	if cfg.Size < 1 {
		panic("session.NewPool: size must be at least 1")
	}
	if cfg.Store == nil || cfg.Paths == nil || cfg.Logger == nil {
		panic("session.NewPool: nil store, path source or logger")
	}
	slots := make([]*slot, cfg.Size)
	for i := range slots {
		slots[i] = &slot{id: int32(i)}
	}
	return &Pool{
		store:     cfg.Store,
		paths:     cfg.Paths,
		directory: cfg.Directory,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		slots:     slots,
	}
}

// Size reports the number of sessions.
func (p *Pool) Size() int { return len(p.slots) }

// Run starts every worker and blocks. It returns the first fatal worker
// error, or nil once ctx is cancelled and every worker has stopped.
// Cancelling ctx, or a fatal error, closes the path source and every
// bound pipe so the remaining workers stop too.
func (p *Pool) Run(ctx context.Context) error {
	shutdown := func() {
		p.paths.Close()
		p.closeActive()
	}
	stop := context.AfterFunc(ctx, shutdown)
	defer stop()

	errs := make(chan error, len(p.slots))
	for _, s := range p.slots {
		go func(s *slot) { errs <- p.work(ctx, s) }(s)
	}
	p.logger.Info("session pool started", "size", len(p.slots))

	for range p.slots {
		if err := <-errs; err != nil {
			shutdown()
			return err
		}
	}
	return nil
}

// Sessions snapshots every slot for operators.
func (p *Pool) Sessions() []model.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Session, len(p.slots))
	for i, s := range p.slots {
		out[i] = s.describe()
	}
	return out
}

// Active reports how many sessions are bound to a client.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.slots {
		if s.active {
			n++
		}
	}
	return n
}

func (s *slot) describe() model.Session {
	out := model.Session{ID: s.id, State: model.SessionIdle, Requests: s.requests}
	if s.active {
		out.State = model.SessionActive
		out.RequestPath = s.requestPath
		out.ResponsePath = s.responsePath
		out.BoundAt = s.boundAt
	}
	return out
}

// closeActive closes the pipes of every bound session so workers blocked
// on a read return.
func (p *Pool) closeActive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		if !s.active {
			continue
		}
		if s.req != nil {
			s.req.Close()
		}
		if s.resp != nil {
			s.resp.Close()
		}
	}
}
