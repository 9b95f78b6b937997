package mcp

import (
	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
)

// ListMonitorsInput is the input for the list_monitors tool.
type ListMonitorsInput struct{}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []ipc.Monitor `json:"monitors"`
}

// AddMonitorInput is the input for the add_monitor tool.
type AddMonitorInput struct {
	ID       *ipc.ID  `json:"id,omitempty" jsonschema:"Explicit monitor ID. When omitted the smallest unused ID is allocated."`
	Name     string   `json:"name,omitempty" jsonschema:"Optional label for the monitor"`
	Disabled bool     `json:"disabled,omitempty" jsonschema:"Create the monitor disabled"`
	Modes    []string `json:"modes" jsonschema:"Modes as WIDTHxHEIGHT[@RATE[/RATE...]], e.g. 1920x1080@60/120. Stored exactly as given."`
}

// AddMonitorOutput is the output for the add_monitor tool.
type AddMonitorOutput struct {
	ID      ipc.ID `json:"id"`
	Enabled bool   `json:"enabled"`
}

// AddModesInput is the input for the add_modes tool.
type AddModesInput struct {
	ID    ipc.ID   `json:"id" jsonschema:"Monitor ID"`
	Modes []string `json:"modes" jsonschema:"Modes to merge into the monitor, e.g. 2560x1440@144"`
}

// RemoveModeInput is the input for the remove_mode tool.
type RemoveModeInput struct {
	ID   ipc.ID `json:"id" jsonschema:"Monitor ID"`
	Mode string `json:"mode" jsonschema:"Mode to remove. Without @RATE the whole resolution goes; with rates only those rates go."`
}

// ModesOutput is the output for the add_modes and remove_mode tools.
type ModesOutput struct {
	ID    ipc.ID      `json:"id"`
	Modes []mode.Mode `json:"modes"`
}

// MonitorIDInput is the input for the enable_monitor and disable_monitor tools.
type MonitorIDInput struct {
	ID ipc.ID `json:"id" jsonschema:"Monitor ID"`
}

// ToggleOutput is the output for the enable_monitor and disable_monitor tools.
type ToggleOutput struct {
	Monitor ipc.Monitor `json:"monitor"`
	Toggled bool        `json:"toggled"`
}

// RemoveMonitorsInput is the input for the remove_monitors tool.
type RemoveMonitorsInput struct {
	IDs []ipc.ID `json:"ids" jsonschema:"Monitor IDs to remove. If any ID is unknown nothing is removed."`
}

// RemoveMonitorsOutput is the output for the remove_monitors tool.
type RemoveMonitorsOutput struct {
	Removed []ipc.ID `json:"removed"`
}

// RemoveAllInput is the input for the remove_all_monitors tool.
type RemoveAllInput struct{}

// RemoveAllOutput is the output for the remove_all_monitors tool.
type RemoveAllOutput struct {
	Cleared bool `json:"cleared"`
}
