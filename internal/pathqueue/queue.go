// Package pathqueue is the hand-off point between the host listener and
// the session workers: an unbounded FIFO of pipe paths.
//
// Each handshake produces two entries, the request path followed by the
// response path, and a single worker must consume both. EnqueuePair and
// DequeuePair keep that pairing under one lock acquisition so two idle
// workers can never split a handshake between them.
package pathqueue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Dequeue once the queue has been closed and
// drained.
var ErrClosed = errors.New("path queue closed")

// Queue is a blocking FIFO of strings. There is no capacity bound: when
// every worker is busy, handshakes accumulate here and the connecting
// clients wait until a worker frees up.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	paths    []string
	closed   bool
}

// New returns an empty queue.
func New() *Queue {
	q := &Queue{}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends one path and wakes a waiting consumer.
func (q *Queue) Enqueue(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paths = append(q.paths, path)
	q.notEmpty.Signal()
}

// EnqueuePair appends a handshake's request and response paths
// back-to-back.
func (q *Queue) EnqueuePair(requestPath, responsePath string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paths = append(q.paths, requestPath, responsePath)
	q.notEmpty.Signal()
}

// Dequeue blocks until a path is available and removes it. It returns
// ErrClosed after Close once the queue is empty.
func (q *Queue) Dequeue() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dequeueLocked()
}

// DequeuePair removes a request path and the response path that follows
// it, holding the lock across both so no other consumer can take the
// second half.
func (q *Queue) DequeuePair() (requestPath, responsePath string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if requestPath, err = q.dequeueLocked(); err != nil {
		return "", "", err
	}
	if responsePath, err = q.dequeueLocked(); err != nil {
		return "", "", err
	}
	return requestPath, responsePath, nil
}

func (q *Queue) dequeueLocked() (string, error) {
	for len(q.paths) == 0 {
		if q.closed {
			return "", ErrClosed
		}
		q.notEmpty.Wait()
	}
	head := q.paths[0]
	q.paths[0] = ""
	q.paths = q.paths[1:]
	// A consumer may have been woken by a producer whose entries were
	// taken by someone else; pass the wakeup on while work remains.
	if len(q.paths) > 0 {
		q.notEmpty.Signal()
	}
	return head, nil
}

// Len reports the number of queued paths.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.paths)
}

// Close wakes every blocked consumer. Paths already queued can still be
// dequeued; afterwards Dequeue returns ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
}
