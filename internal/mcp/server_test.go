package mcp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/vdmctl/internal/hoststore"
	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
	"github.com/1broseidon/vdmctl/internal/registry"
)

// pipeDialer serves each session on an in-process pipe against store.
func pipeDialer(store ipc.Store) registry.Dialer {
	server := ipc.NewServer("", ipc.NewHandler(store, nil, nil), nil)
	return func(context.Context) (registry.Transport, error) {
		hostEnd, clientEnd := net.Pipe()
		go server.ServeConn(hostEnd)
		return ipc.NewStreamSession(clientEnd, time.Second), nil
	}
}

func connectClient(t *testing.T, store ipc.Store) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	s := NewServer(pipeDialer(store), nil)

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args any, out any) *mcpsdk.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		if err != nil {
			t.Fatalf("marshal structured content: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshal structured content: %v", err)
		}
	}
	return res
}

func errorText(res *mcpsdk.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func TestListTools(t *testing.T) {
	session := connectClient(t, hoststore.NewMemory())
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	want := map[string]bool{
		"list_monitors": false, "add_monitor": false, "add_modes": false, "remove_mode": false,
		"enable_monitor": false, "disable_monitor": false, "remove_monitors": false, "remove_all_monitors": false,
	}
	for _, tool := range res.Tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestAddAndListMonitors(t *testing.T) {
	store := hoststore.NewMemory()
	session := connectClient(t, store)

	var added AddMonitorOutput
	res := callTool(t, session, "add_monitor", map[string]any{
		"name":  "capture",
		"modes": []string{"1920x1080@60", "1280x720"},
	}, &added)
	if res.IsError {
		t.Fatalf("add_monitor failed: %s", errorText(res))
	}
	if added.ID != 0 || !added.Enabled {
		t.Fatalf("unexpected add output %+v", added)
	}

	var listed ListMonitorsOutput
	callTool(t, session, "list_monitors", map[string]any{}, &listed)
	if len(listed.Monitors) != 1 {
		t.Fatalf("expected 1 monitor, got %d", len(listed.Monitors))
	}
	m := listed.Monitors[0]
	if m.Name != "capture" || len(m.Modes) != 2 {
		t.Fatalf("unexpected monitor %+v", m)
	}
}

func TestAddMonitor_ParseErrorMakesNoRemoteCall(t *testing.T) {
	store := hoststore.NewMemory()
	session := connectClient(t, store)

	res := callTool(t, session, "add_monitor", map[string]any{"modes": []string{"1920by1080"}}, nil)
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
	if monitors, _ := store.Snapshot(); len(monitors) != 0 {
		t.Fatalf("expected empty registry, got %v", monitors)
	}
}

func TestModesAndToggle(t *testing.T) {
	store := hoststore.NewMemory()
	md, _ := mode.Parse("1920x1080@60")
	if err := store.Apply([]ipc.Monitor{{ID: 2, Enabled: true, Modes: []mode.Mode{md}}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	session := connectClient(t, store)

	var modes ModesOutput
	callTool(t, session, "add_modes", map[string]any{"id": 2, "modes": []string{"1920x1080@120"}}, &modes)
	if len(modes.Modes) != 1 || len(modes.Modes[0].RefreshRates) != 2 {
		t.Fatalf("expected merged rates, got %+v", modes.Modes)
	}

	res := callTool(t, session, "remove_mode", map[string]any{"id": 2, "mode": "1920x1080@75"}, nil)
	if !res.IsError {
		t.Fatalf("expected missing rate to fail")
	}

	var toggled ToggleOutput
	callTool(t, session, "enable_monitor", map[string]any{"id": 2}, &toggled)
	if toggled.Toggled {
		t.Fatalf("expected already enabled monitor not to toggle")
	}
	callTool(t, session, "disable_monitor", map[string]any{"id": 2}, &toggled)
	if !toggled.Toggled || toggled.Monitor.Enabled {
		t.Fatalf("expected monitor to be disabled, got %+v", toggled)
	}
}

func TestRemoveMonitors_AllOrNothing(t *testing.T) {
	store := hoststore.NewMemory()
	if err := store.Apply([]ipc.Monitor{{ID: 7}, {ID: 9}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	session := connectClient(t, store)

	res := callTool(t, session, "remove_monitors", map[string]any{"ids": []int{7, 8}}, nil)
	if !res.IsError {
		t.Fatalf("expected unknown id to fail")
	}
	if got := errorText(res); got != "virtual monitor with ID 8 not found" {
		t.Fatalf("unexpected error text %q", got)
	}
	if monitors, _ := store.Snapshot(); len(monitors) != 2 {
		t.Fatalf("expected nothing removed, got %d monitors", len(monitors))
	}

	var cleared RemoveAllOutput
	callTool(t, session, "remove_all_monitors", map[string]any{}, &cleared)
	if !cleared.Cleared {
		t.Fatalf("expected cleared")
	}
	if monitors, _ := store.Snapshot(); len(monitors) != 0 {
		t.Fatalf("expected empty registry, got %d monitors", len(monitors))
	}
}
