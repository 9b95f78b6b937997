package hoststore

import (
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
)

func openStores(t *testing.T) map[string]ipc.Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]ipc.Store{
		KindMemory: NewMemory(),
		KindSQLite: sqlite,
	}
}

func monitor(id ipc.ID, enabled bool, modes ...string) ipc.Monitor {
	m := ipc.Monitor{ID: id, Enabled: enabled, Modes: []mode.Mode{}}
	for _, text := range modes {
		md, err := mode.Parse(text)
		if err != nil {
			panic(err)
		}
		m.Modes = append(m.Modes, md)
	}
	return m
}

func sortedSnapshot(t *testing.T, s ipc.Store) []ipc.Monitor {
	t.Helper()
	monitors, err := s.Snapshot()
	require.NoError(t, err)
	sort.Slice(monitors, func(i, j int) bool { return monitors[i].ID < monitors[j].ID })
	return monitors
}

func TestStore_ApplyUpserts(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			first := monitor(0, true, "1920x1080", "1920x1080@60")
			first.Name = "left"
			require.NoError(t, s.Apply([]ipc.Monitor{first, monitor(1, false)}))

			replaced := monitor(0, false, "1280x720@60")
			require.NoError(t, s.Apply([]ipc.Monitor{replaced}))

			got := sortedSnapshot(t, s)
			require.Len(t, got, 2)
			assert.Equal(t, replaced, got[0])
			assert.Equal(t, monitor(1, false), got[1])
			assert.Equal(t, kind, s.Kind())
		})
	}
}

func TestStore_ApplyKeepsDuplicateModesVerbatim(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			m := monitor(3, true, "1920x1080", "1920x1080@60")
			require.NoError(t, s.Apply([]ipc.Monitor{m}))
			got := sortedSnapshot(t, s)
			require.Len(t, got, 1)
			assert.Equal(t, m.Modes, got[0].Modes)
		})
	}
}

func TestStore_ApplyRejectsInvalidBatchAtomically(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			err := s.Apply([]ipc.Monitor{monitor(1, true), monitor(1, false)})
			var invalid *ipc.InvalidMonitorError
			require.ErrorAs(t, err, &invalid)

			bad := monitor(2, true)
			bad.Modes = []mode.Mode{{Width: 0, Height: 1080}}
			err = s.Apply([]ipc.Monitor{monitor(5, true), bad})
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, ipc.ID(2), invalid.ID)

			assert.Empty(t, sortedSnapshot(t, s))
		})
	}
}

func TestStore_DeleteIsAllOrNothing(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, s.Apply([]ipc.Monitor{monitor(7, true), monitor(9, true)}))

			err := s.Delete([]ipc.ID{7, 8, 10, 8})
			var unknown *ipc.UnknownIDsError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, []ipc.ID{8, 10}, unknown.IDs)
			assert.Len(t, sortedSnapshot(t, s), 2)

			require.NoError(t, s.Delete([]ipc.ID{7}))
			got := sortedSnapshot(t, s)
			require.Len(t, got, 1)
			assert.Equal(t, ipc.ID(9), got[0].ID)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, s.Apply([]ipc.Monitor{monitor(0, true), monitor(1, true)}))
			require.NoError(t, s.Clear())
			assert.Empty(t, sortedSnapshot(t, s))
			require.NoError(t, s.Clear())
		})
	}
}

func TestMemory_SnapshotIsACopy(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Apply([]ipc.Monitor{monitor(0, true, "1920x1080@60")}))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	snap[0].Modes[0].RefreshRates[0] = 1
	snap[0].Enabled = false

	again := sortedSnapshot(t, s)
	assert.Equal(t, monitor(0, true, "1920x1080@60"), again[0])
}

func TestMemory_ConcurrentBatchesDoNotInterleave(t *testing.T) {
	s := NewMemory()

	var wg sync.WaitGroup
	for writer := 0; writer < 8; writer++ {
		wg.Add(1)
		go func(enabled bool) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				batch := []ipc.Monitor{monitor(0, enabled), monitor(1, enabled), monitor(2, enabled)}
				if err := s.Apply(batch); err != nil {
					t.Error(err)
					return
				}
			}
		}(writer%2 == 0)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		snap := sortedSnapshot(t, s)
		if len(snap) == 3 {
			for _, m := range snap[1:] {
				require.Equal(t, snap[0].Enabled, m.Enabled, "batch was applied partially")
			}
		}
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	m := monitor(4, false, "2560x1440@144")
	m.Name = "capture"
	require.NoError(t, s.Apply([]ipc.Monitor{m}))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, path, reopened.Path())
	assert.Equal(t, []ipc.Monitor{m}, sortedSnapshot(t, reopened))
}
