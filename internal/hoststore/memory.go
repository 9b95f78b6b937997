// Package hoststore implements the registry owned by the reference driver
// host. Every mutation is applied as one indivisible batch.
package hoststore

import (
	"slices"
	"sync"

	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

var (
	_ ipc.Store = (*Memory)(nil)
	_ ipc.Store = (*SQLite)(nil)
)

// Memory is a process-local registry. A single mutex serialises batches.
type Memory struct {
	mu       sync.RWMutex
	monitors map[ipc.ID]ipc.Monitor
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{monitors: make(map[ipc.ID]ipc.Monitor)}
}

func (s *Memory) Kind() string { return KindMemory }

func (s *Memory) Close() error { return nil }

// Snapshot returns copies of every monitor, in no particular order.
func (s *Memory) Snapshot() ([]ipc.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ipc.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, cloneMonitor(m))
	}
	return out, nil
}

// Apply upserts every monitor of the batch.
func (s *Memory) Apply(monitors []ipc.Monitor) error {
	if err := ipc.ValidateBatch(monitors); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range monitors {
		s.monitors[m.ID] = cloneMonitor(m)
	}
	return nil
}

// Delete removes every id of the batch, or none of them if any is unknown.
func (s *Memory) Delete(ids []ipc.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if missing := missingIDs(ids, func(id ipc.ID) bool {
		_, ok := s.monitors[id]
		return ok
	}); len(missing) > 0 {
		return &ipc.UnknownIDsError{IDs: missing}
	}
	for _, id := range ids {
		delete(s.monitors, id)
	}
	return nil
}

// Clear removes every monitor.
func (s *Memory) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.monitors)
	return nil
}

func cloneMonitor(m ipc.Monitor) ipc.Monitor {
	out := m
	out.Modes = make([]mode.Mode, len(m.Modes))
	for i, md := range m.Modes {
		out.Modes[i] = mode.Mode{
			Width:        md.Width,
			Height:       md.Height,
			RefreshRates: slices.Clone(md.RefreshRates),
		}
	}
	return out
}

// missingIDs returns the sorted, deduplicated ids for which exists is false.
func missingIDs(ids []ipc.ID, exists func(ipc.ID) bool) []ipc.ID {
	var missing []ipc.ID
	for _, id := range ids {
		if !exists(id) {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return slices.Compact(missing)
}
