// Package pipe wraps the named-pipe (FIFO) system calls used by both the
// server and the client stub.
//
// Opening a FIFO blocks until the other end is opened, except in
// read-write mode, which the server uses for its well-known pipe so the
// listener never observes end-of-file when the last client disconnects.
// Files returned here are registered with the runtime poller, so read
// deadlines work on them.
package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// Permissions used when creating pipes.
const (
	ServerMode fs.FileMode = 0o777
	ClientMode fs.FileMode = 0o666
)

// Create removes any stale file at path and makes a fresh FIFO.
func Create(path string, mode fs.FileMode) error {
	if err := Remove(path); err != nil {
		return err
	}
	if err := unix.Mkfifo(path, uint32(mode.Perm())); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// Remove deletes the FIFO at path, ignoring a missing file.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing pipe %s: %w", path, err)
	}
	return nil
}

// IsFIFO reports whether path names a named pipe.
func IsFIFO(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&fs.ModeNamedPipe != 0
}

// OpenRead opens path for reading, blocking until a writer opens it.
func OpenRead(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for reading: %w", path, err)
	}
	return f, nil
}

// OpenWrite opens path for writing, blocking until a reader opens it.
func OpenWrite(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for writing: %w", path, err)
	}
	return f, nil
}

// ErrNoReader is returned by Dial when nobody has the pipe open for
// reading, which for the server pipe means the server is not running.
var ErrNoReader = errors.New("no reader on pipe")

// Dial opens path for writing without waiting for a reader. It fails with
// ErrNoReader instead of blocking forever on a pipe nobody serves.
func Dial(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return nil, fmt.Errorf("dialing %s: %w", path, ErrNoReader)
		}
		return nil, fmt.Errorf("dialing %s: %w", path, err)
	}
	return f, nil
}

// OpenReadWrite opens path in read-write mode. On Linux this does not
// block and keeps a writer attached for the life of the file, so reads
// wait for data instead of returning end-of-file.
func OpenReadWrite(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
