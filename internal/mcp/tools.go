package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/vdmctl/internal/commands"
	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
	"github.com/1broseidon/vdmctl/internal/registry"
)

// execute runs one command over a fresh session.
func (s *Server) execute(ctx context.Context, tool string, cmd commands.Command) (commands.Result, error) {
	client, err := registry.Connect(ctx, s.dial, registry.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	res, err := commands.Execute(ctx, client, cmd)
	if err != nil {
		s.logger.Debug("tool failed", "tool", tool, "err", err)
		return nil, err
	}
	s.logger.Debug("tool succeeded", "tool", tool)
	return res, nil
}

func (s *Server) handleListMonitors(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListMonitorsInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	res, err := s.execute(ctx, "list_monitors", commands.List{})
	if err != nil {
		return nil, ListMonitorsOutput{}, err
	}
	monitors := res.(commands.ListResult).Monitors
	if monitors == nil {
		monitors = []ipc.Monitor{}
	}
	return nil, ListMonitorsOutput{Monitors: monitors}, nil
}

func (s *Server) handleAddMonitor(ctx context.Context, _ *mcpsdk.CallToolRequest, args AddMonitorInput) (*mcpsdk.CallToolResult, AddMonitorOutput, error) {
	modes, err := mode.ParseList(args.Modes)
	if err != nil {
		return nil, AddMonitorOutput{}, err
	}

	var sel registry.IDSelection = registry.Auto{}
	if args.ID != nil {
		sel = registry.Explicit{ID: *args.ID}
	}

	res, err := s.execute(ctx, "add_monitor", commands.Add{
		ID:       sel,
		Name:     args.Name,
		Disabled: args.Disabled,
		Modes:    modes,
	})
	if err != nil {
		return nil, AddMonitorOutput{}, err
	}
	added := res.(commands.AddResult)
	return nil, AddMonitorOutput{ID: added.ID, Enabled: !added.Disabled}, nil
}

func (s *Server) handleAddModes(ctx context.Context, _ *mcpsdk.CallToolRequest, args AddModesInput) (*mcpsdk.CallToolResult, ModesOutput, error) {
	if len(args.Modes) == 0 {
		return nil, ModesOutput{}, fmt.Errorf("at least one mode is required")
	}
	modes, err := mode.ParseList(args.Modes)
	if err != nil {
		return nil, ModesOutput{}, err
	}

	res, err := s.execute(ctx, "add_modes", commands.AddMode{ID: args.ID, Modes: modes})
	if err != nil {
		return nil, ModesOutput{}, err
	}
	updated := res.(commands.ModesResult)
	return nil, ModesOutput{ID: updated.ID, Modes: nonNil(updated.Modes)}, nil
}

func (s *Server) handleRemoveMode(ctx context.Context, _ *mcpsdk.CallToolRequest, args RemoveModeInput) (*mcpsdk.CallToolResult, ModesOutput, error) {
	target, err := mode.Parse(args.Mode)
	if err != nil {
		return nil, ModesOutput{}, err
	}

	res, err := s.execute(ctx, "remove_mode", commands.RemoveMode{ID: args.ID, Mode: target})
	if err != nil {
		return nil, ModesOutput{}, err
	}
	updated := res.(commands.RemoveModeResult)
	return nil, ModesOutput{ID: updated.ID, Modes: nonNil(updated.Modes)}, nil
}

func (s *Server) handleEnableMonitor(ctx context.Context, _ *mcpsdk.CallToolRequest, args MonitorIDInput) (*mcpsdk.CallToolResult, ToggleOutput, error) {
	return s.toggle(ctx, "enable_monitor", commands.Enable{ID: args.ID})
}

func (s *Server) handleDisableMonitor(ctx context.Context, _ *mcpsdk.CallToolRequest, args MonitorIDInput) (*mcpsdk.CallToolResult, ToggleOutput, error) {
	return s.toggle(ctx, "disable_monitor", commands.Disable{ID: args.ID})
}

func (s *Server) toggle(ctx context.Context, tool string, cmd commands.Command) (*mcpsdk.CallToolResult, ToggleOutput, error) {
	res, err := s.execute(ctx, tool, cmd)
	if err != nil {
		return nil, ToggleOutput{}, err
	}
	outcome := res.(commands.ToggleResult)
	monitor := outcome.Monitor
	monitor.Modes = nonNil(monitor.Modes)
	return nil, ToggleOutput{Monitor: monitor, Toggled: outcome.Toggled}, nil
}

func (s *Server) handleRemoveMonitors(ctx context.Context, _ *mcpsdk.CallToolRequest, args RemoveMonitorsInput) (*mcpsdk.CallToolResult, RemoveMonitorsOutput, error) {
	if len(args.IDs) == 0 {
		return nil, RemoveMonitorsOutput{}, fmt.Errorf("at least one id is required")
	}
	res, err := s.execute(ctx, "remove_monitors", commands.Remove{IDs: args.IDs})
	if err != nil {
		return nil, RemoveMonitorsOutput{}, err
	}
	return nil, RemoveMonitorsOutput{Removed: res.(commands.RemoveResult).IDs}, nil
}

func (s *Server) handleRemoveAll(ctx context.Context, _ *mcpsdk.CallToolRequest, _ RemoveAllInput) (*mcpsdk.CallToolResult, RemoveAllOutput, error) {
	if _, err := s.execute(ctx, "remove_all_monitors", commands.RemoveAll{}); err != nil {
		return nil, RemoveAllOutput{}, err
	}
	return nil, RemoveAllOutput{Cleared: true}, nil
}

func nonNil(modes []mode.Mode) []mode.Mode {
	if modes == nil {
		return []mode.Mode{}
	}
	return modes
}
