package store

import (
	"bufio"
	"fmt"
	"io"
)

// DumpAll writes every event to w: the id on its own line, then one line
// per row with seat values separated by spaces, then a blank line.
//
// The store read lock is held for the whole walk so Create waits until
// the dump finishes; event locks are taken one at a time, so reservations
// on other events keep flowing.
func (s *Store) DumpAll(w io.Writer) error {
	if s == nil {
		return ErrNotInitialized
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	bw := bufio.NewWriter(w)
	for _, ev := range s.events {
		s.wait()
		if err := dumpEvent(bw, ev); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func dumpEvent(w *bufio.Writer, ev *Event) error {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if _, err := fmt.Fprintf(w, "%d\n", ev.id); err != nil {
		return fmt.Errorf("dump event %d: %w", ev.id, err)
	}
	if err := WriteGrid(w, ev.cols, ev.data); err != nil {
		return fmt.Errorf("dump event %d: %w", ev.id, err)
	}
	if _, err := w.WriteString("\n"); err != nil {
		return fmt.Errorf("dump event %d: %w", ev.id, err)
	}
	return nil
}

// WriteGrid renders a row-major grid one row per line. The client CLI
// prints show responses with the same layout.
func WriteGrid(w io.Writer, cols uint64, seats []uint32) error {
	if cols == 0 {
		return nil
	}
	for i, v := range seats {
		sep := " "
		if uint64(i+1)%cols == 0 {
			sep = "\n"
		}
		if _, err := fmt.Fprintf(w, "%d%s", v, sep); err != nil {
			return err
		}
	}
	return nil
}

// Snapshots copies every event grid in creation order, using the same
// lock discipline as DumpAll.
func (s *Store) Snapshots() ([]Grid, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	grids := make([]Grid, 0, len(s.events))
	for _, ev := range s.events {
		s.wait()
		ev.mu.Lock()
		g := ev.snapshot()
		ev.mu.Unlock()
		grids = append(grids, g)
	}
	return grids, nil
}
