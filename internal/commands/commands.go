// Package commands turns operator intents into registry operations. Each
// command is one synchronous sequence of round trips over a single session.
package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
	"github.com/1broseidon/vdmctl/internal/registry"
)

// Command is one of List, Add, AddMode, RemoveMode, Enable, Disable, Remove
// or RemoveAll.
type Command interface {
	isCommand()
}

type (
	List struct{}

	Add struct {
		ID       registry.IDSelection
		Name     string
		Disabled bool
		Modes    []mode.Mode
	}

	AddMode struct {
		ID    ipc.ID
		Modes []mode.Mode
	}

	RemoveMode struct {
		ID   ipc.ID
		Mode mode.Mode
	}

	Enable struct {
		ID ipc.ID
	}

	Disable struct {
		ID ipc.ID
	}

	Remove struct {
		IDs []ipc.ID
	}

	RemoveAll struct{}
)

func (List) isCommand()       {}
func (Add) isCommand()        {}
func (AddMode) isCommand()    {}
func (RemoveMode) isCommand() {}
func (Enable) isCommand()     {}
func (Disable) isCommand()    {}
func (Remove) isCommand()     {}
func (RemoveAll) isCommand()  {}

// Result is the outcome of a successful command.
type Result interface {
	isResult()
}

// ListResult holds the registry sorted by id.
type ListResult struct {
	Monitors []ipc.Monitor
}

type AddResult struct {
	ID       ipc.ID
	Disabled bool
}

// ModesResult carries the mode list stored after add-mode or remove-mode.
type ModesResult struct {
	ID    ipc.ID
	Modes []mode.Mode
}

// RemoveModeResult is a ModesResult that also names the mode that was removed.
type RemoveModeResult struct {
	ModesResult
	Removed mode.Mode
}

// ToggleResult reports the monitor after enable or disable. Toggled is false
// when the monitor was already in the requested state.
type ToggleResult struct {
	Monitor ipc.Monitor
	Toggled bool
	Enabled bool
}

type RemoveResult struct {
	IDs []ipc.ID
}

type RemoveAllResult struct{}

func (ListResult) isResult()       {}
func (AddResult) isResult()        {}
func (ModesResult) isResult()      {}
func (RemoveModeResult) isResult() {}
func (ToggleResult) isResult()     {}
func (RemoveResult) isResult()     {}
func (RemoveAllResult) isResult()  {}

// Execute runs cmd against the registry behind client.
func Execute(ctx context.Context, client *registry.Client, cmd Command) (Result, error) {
	switch cmd := cmd.(type) {
	case List:
		return list(ctx, client)
	case Add:
		return add(ctx, client, cmd)
	case AddMode:
		return addMode(ctx, client, cmd)
	case RemoveMode:
		return removeMode(ctx, client, cmd)
	case Enable:
		return setEnabled(ctx, client, cmd.ID, true)
	case Disable:
		return setEnabled(ctx, client, cmd.ID, false)
	case Remove:
		return remove(ctx, client, cmd)
	case RemoveAll:
		if err := client.RemoveAll(ctx); err != nil {
			return nil, err
		}
		return RemoveAllResult{}, nil
	default:
		return nil, fmt.Errorf("unknown command %T", cmd)
	}
}

func list(ctx context.Context, client *registry.Client) (Result, error) {
	monitors, err := client.Monitors(ctx)
	if err != nil {
		return nil, err
	}
	sorted := make([]ipc.Monitor, len(monitors))
	copy(sorted, monitors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return ListResult{Monitors: sorted}, nil
}

// add stores the modes exactly as given; duplicate resolutions are folded by
// the next add-mode or remove-mode.
func add(ctx context.Context, client *registry.Client, cmd Add) (Result, error) {
	id, err := client.NewID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	modes := cmd.Modes
	if modes == nil {
		modes = []mode.Mode{}
	}
	m := ipc.Monitor{
		ID:      id,
		Enabled: !cmd.Disabled,
		Name:    cmd.Name,
		Modes:   modes,
	}
	if err := client.Notify(ctx, []ipc.Monitor{m}); err != nil {
		return nil, err
	}
	return AddResult{ID: id, Disabled: cmd.Disabled}, nil
}

func addMode(ctx context.Context, client *registry.Client, cmd AddMode) (Result, error) {
	m, err := client.Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	combined := make([]mode.Mode, 0, len(m.Modes)+len(cmd.Modes))
	combined = append(combined, m.Modes...)
	combined = append(combined, cmd.Modes...)
	m.Modes = mode.Merge(combined)

	if err := client.Notify(ctx, []ipc.Monitor{m}); err != nil {
		return nil, err
	}
	return ModesResult{ID: m.ID, Modes: m.Modes}, nil
}

func removeMode(ctx context.Context, client *registry.Client, cmd RemoveMode) (Result, error) {
	m, err := client.Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	modes, err := mode.Remove(m.Modes, cmd.Mode)
	if err != nil {
		return nil, fmt.Errorf("virtual monitor %d: %w", m.ID, err)
	}
	m.Modes = modes

	if err := client.Notify(ctx, []ipc.Monitor{m}); err != nil {
		return nil, err
	}
	return RemoveModeResult{
		ModesResult: ModesResult{ID: m.ID, Modes: m.Modes},
		Removed:     cmd.Mode,
	}, nil
}

func setEnabled(ctx context.Context, client *registry.Client, id ipc.ID, enabled bool) (Result, error) {
	m, err := client.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Enabled == enabled {
		return ToggleResult{Monitor: m, Toggled: false, Enabled: enabled}, nil
	}
	m.Enabled = enabled
	if err := client.Notify(ctx, []ipc.Monitor{m}); err != nil {
		return nil, err
	}
	return ToggleResult{Monitor: m, Toggled: true, Enabled: enabled}, nil
}

func remove(ctx context.Context, client *registry.Client, cmd Remove) (Result, error) {
	if err := client.ValidateHasIDs(ctx, cmd.IDs); err != nil {
		return nil, err
	}
	if err := client.Remove(ctx, cmd.IDs); err != nil {
		return nil, err
	}
	return RemoveResult{IDs: cmd.IDs}, nil
}
