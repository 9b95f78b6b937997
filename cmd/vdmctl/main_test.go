package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/vdmctl/internal/hoststore"
	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
	"github.com/1broseidon/vdmctl/internal/registry"
)

func pipeDialer(store ipc.Store) registry.Dialer {
	server := ipc.NewServer("", ipc.NewHandler(store, nil, nil), nil)
	return func(context.Context) (registry.Transport, error) {
		hostEnd, clientEnd := net.Pipe()
		go server.ServeConn(hostEnd)
		return ipc.NewStreamSession(clientEnd, time.Second), nil
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, store ipc.Store, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(strings.NewReader(""), &stdout, &stderr)
	a.dial = pipeDialer(store)

	root := newRootCmd(a)
	missing := filepath.Join(t.TempDir(), "config.yaml")
	root.SetArgs(append([]string{"--config", missing}, args...))
	err := root.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func snapshot(t *testing.T, store *hoststore.Memory) []ipc.Monitor {
	t.Helper()
	monitors, err := store.Snapshot()
	require.NoError(t, err)
	return monitors
}

func TestAddThenList(t *testing.T) {
	store := hoststore.NewMemory()

	res := run(t, store, "add", "--name", "capture", "1920x1080@60/120", "1280x720")
	require.NoError(t, res.err)
	assert.Equal(t, "Added virtual monitor with ID 0.\n", res.stdout)

	res = run(t, store, "add", "--disabled")
	require.NoError(t, res.err)
	assert.Equal(t, "Added virtual monitor with ID 1 (disabled).\n", res.stdout)

	res = run(t, store, "list")
	require.NoError(t, res.err)
	assert.Equal(t, strings.Join([]string{
		"Virtual monitors",
		"Monitor 0 [capture]:",
		"- Mode 0: 1920x1080 @ 60/120Hz",
		"- Mode 1: 1280x720 @ ?Hz",
		"",
		"Monitor 1 (disabled):",
		"- No modes",
		"",
	}, "\n"), res.stdout)
}

func TestAdd_ExplicitIDConflict(t *testing.T) {
	store := hoststore.NewMemory()
	require.NoError(t, run(t, store, "add", "--id", "4").err)

	res := run(t, store, "add", "--id", "4")
	require.Error(t, res.err)
	assert.True(t, errors.Is(res.err, registry.ErrConflict))
	assert.Equal(t, 1, exitCode(res.err))
}

func TestList_JSON(t *testing.T) {
	store := hoststore.NewMemory()
	res := run(t, store, "--json", "list")
	require.NoError(t, res.err)
	assert.Equal(t, "[]\n", res.stdout)

	require.NoError(t, run(t, store, "add", "2560x1440@144").err)
	res = run(t, store, "--json", "list")
	require.NoError(t, res.err)

	var monitors []ipc.Monitor
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &monitors))
	require.Len(t, monitors, 1)
	assert.Equal(t, ipc.ID(0), monitors[0].ID)
	assert.Equal(t, "2560x1440@144", monitors[0].Modes[0].String())
}

func TestAddMode_MergesAndPrintsModes(t *testing.T) {
	store := hoststore.NewMemory()
	require.NoError(t, run(t, store, "add", "1920x1080@60").err)

	res := run(t, store, "--json", "add-mode", "0", "1920x1080@120", "1280x720@60")
	require.NoError(t, res.err)

	var modes []mode.Mode
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &modes))
	require.Len(t, modes, 2)
	assert.Equal(t, []uint32{60, 120}, modes[0].RefreshRates)
}

func TestRemoveMode(t *testing.T) {
	store := hoststore.NewMemory()
	require.NoError(t, run(t, store, "add", "1920x1080@60/120").err)

	res := run(t, store, "remove-mode", "0", "1920x1080@120")
	require.NoError(t, res.err)
	assert.Equal(t, "Removed mode 1920x1080@120 from virtual monitor with ID 0.\n", res.stdout)

	res = run(t, store, "remove-mode", "0", "1920x1080@75")
	require.Error(t, res.err)
	assert.True(t, errors.Is(res.err, mode.ErrNotFound))
	assert.Equal(t, 1, exitCode(res.err))
	assert.Equal(t, []uint32{60}, snapshot(t, store)[0].Modes[0].RefreshRates)
}

func TestEnableDisable(t *testing.T) {
	store := hoststore.NewMemory()
	require.NoError(t, run(t, store, "add").err)

	res := run(t, store, "enable", "0")
	require.NoError(t, res.err)
	assert.Equal(t, "Enabled virtual monitor with ID 0 (was already enabled).\n", res.stdout)

	res = run(t, store, "disable", "0")
	require.NoError(t, res.err)
	assert.Equal(t, "Disabled virtual monitor with ID 0.\n", res.stdout)
	assert.False(t, snapshot(t, store)[0].Enabled)
}

func TestRemove_UnknownIDRemovesNothing(t *testing.T) {
	store := hoststore.NewMemory()
	require.NoError(t, store.Apply([]ipc.Monitor{{ID: 7}, {ID: 9}}))

	res := run(t, store, "remove", "7", "8")
	require.Error(t, res.err)
	assert.EqualError(t, res.err, "virtual monitor with ID 8 not found")
	assert.Equal(t, 1, exitCode(res.err))
	assert.Len(t, snapshot(t, store), 2)

	res = run(t, store, "remove", "7", "9")
	require.NoError(t, res.err)
	assert.Equal(t, "Removed 2 virtual monitors.\n", res.stdout)
	assert.Empty(t, snapshot(t, store))
}

func TestRemoveAll_NonInteractiveSkipsPrompt(t *testing.T) {
	store := hoststore.NewMemory()
	require.NoError(t, store.Apply([]ipc.Monitor{{ID: 0}, {ID: 1}}))

	res := run(t, store, "remove-all")
	require.NoError(t, res.err)
	assert.Equal(t, "Removed all virtual monitors.\n", res.stdout)
	assert.Empty(t, snapshot(t, store))
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"list", "--frob"}},
		{"add-mode without modes", []string{"add-mode", "0"}},
		{"remove-mode extra arg", []string{"remove-mode", "0", "1920x1080", "extra"}},
		{"remove without ids", []string{"remove"}},
		{"non-numeric id", []string{"enable", "first"}},
		{"id out of range", []string{"disable", "4294967296"}},
		{"bad --id", []string{"add", "--id", "-1"}},
		{"malformed mode", []string{"add", "1920by1080"}},
		{"zero rate", []string{"add-mode", "0", "1920x1080@0"}},
		{"bad host address", []string{"--host", "http://example.com", "list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := hoststore.NewMemory()
			res := run(t, store, tt.args...)
			require.Error(t, res.err)
			assert.Equal(t, 2, exitCode(res.err), "err: %v", res.err)
			assert.Empty(t, snapshot(t, store))
		})
	}
}

func TestHostStatus(t *testing.T) {
	store := hoststore.NewMemory()
	require.NoError(t, store.Apply([]ipc.Monitor{{ID: 3}}))

	res := run(t, store, "--host", "/tmp/vdmctl-test.sock", "host", "status")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "Host /tmp/vdmctl-test.sock is running (store: memory, monitors: 1, uptime: "), res.stdout)
}

func TestConfigPrintDefaults(t *testing.T) {
	res := run(t, hoststore.NewMemory(), "config", "print", "--defaults")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "timeout: 5s")
	assert.Contains(t, res.stdout, "store: memory")
}

func TestExitCode(t *testing.T) {
	_, parseErr := mode.Parse("nope")
	require.Error(t, parseErr)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"parse error", parseErr, 2},
		{"wrapped parse error", fmt.Errorf("mode argument: %w", parseErr), 2},
		{"usage", &usageError{command: "vdmctl", err: errors.New("bad")}, 2},
		{"not found", &registry.NotFoundError{IDs: []ipc.ID{3}}, 1},
		{"conflict", &registry.ConflictError{ID: 3}, 1},
		{"transport", &registry.TransportError{Op: "connect", Err: errors.New("refused")}, 1},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
