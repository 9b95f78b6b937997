// Package registry is a thin, stateless facade over the driver host's monitor
// registry. Nothing is cached between calls: every operation that needs the
// current state fetches a fresh snapshot.
package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/1broseidon/vdmctl/internal/ipc"
)

// Transport is the request/response capability offered by the driver host.
// Apply and Delete must be applied by the host as single atomic batches.
type Transport interface {
	Query(ctx context.Context) ([]ipc.Monitor, error)
	Apply(ctx context.Context, monitors []ipc.Monitor) error
	Delete(ctx context.Context, ids []ipc.ID) error
	Clear(ctx context.Context) error
	Close() error
}

// Dialer opens a session with the driver host.
type Dialer func(ctx context.Context) (Transport, error)

// IDSelection chooses how NewID picks an identifier: Explicit or Auto.
type IDSelection interface {
	isIDSelection()
}

// Explicit requests a specific identifier.
type Explicit struct {
	ID ipc.ID
}

// Auto requests the smallest identifier not currently in use.
type Auto struct{}

func (Explicit) isIDSelection() {}
func (Auto) isIDSelection()     {}

// Option configures a Client.
type Option func(*Client)

// WithLogger traces every round trip at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client issues registry operations over one open session.
type Client struct {
	transport Transport
	logger    *slog.Logger
}

// Connect opens a session through dial. There is no retry: an unreachable
// host is reported as a TransportError.
func Connect(ctx context.Context, dial Dialer, opts ...Option) (*Client, error) {
	transport, err := dial(ctx)
	if err != nil {
		return nil, &TransportError{Op: "connect", Err: err}
	}
	return New(transport, opts...), nil
}

// New wraps an already open transport.
func New(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the session.
func (c *Client) Close() error {
	if err := c.transport.Close(); err != nil {
		return &TransportError{Op: "close", Err: err}
	}
	return nil
}

// Monitors returns the registry snapshot as of the call.
func (c *Client) Monitors(ctx context.Context) ([]ipc.Monitor, error) {
	monitors, err := c.transport.Query(ctx)
	if err != nil {
		return nil, &TransportError{Op: "query monitors", Err: err}
	}
	c.logger.Debug("queried monitors", "count", len(monitors))
	return monitors, nil
}

// Get returns the monitor with the given id.
func (c *Client) Get(ctx context.Context, id ipc.ID) (ipc.Monitor, error) {
	monitors, err := c.Monitors(ctx)
	if err != nil {
		return ipc.Monitor{}, err
	}
	for _, m := range monitors {
		if m.ID == id {
			return m, nil
		}
	}
	return ipc.Monitor{}, &NotFoundError{IDs: []ipc.ID{id}}
}

// NewID validates an explicit id against the current snapshot, or allocates
// the smallest non-negative id that is not in use.
func (c *Client) NewID(ctx context.Context, sel IDSelection) (ipc.ID, error) {
	monitors, err := c.Monitors(ctx)
	if err != nil {
		return 0, err
	}
	used := make(map[ipc.ID]struct{}, len(monitors))
	for _, m := range monitors {
		used[m.ID] = struct{}{}
	}

	switch sel := sel.(type) {
	case Explicit:
		if _, taken := used[sel.ID]; taken {
			return 0, &ConflictError{ID: sel.ID}
		}
		return sel.ID, nil
	case Auto, nil:
		var id ipc.ID
		for {
			if _, taken := used[id]; !taken {
				c.logger.Debug("allocated monitor id", "id", id)
				return id, nil
			}
			id++
		}
	default:
		panic("registry: unknown IDSelection")
	}
}

// Notify pushes full replacement values for monitors as one batch. Each entry
// replaces the stored monitor with the same id or creates it.
func (c *Client) Notify(ctx context.Context, monitors []ipc.Monitor) error {
	if len(monitors) == 0 {
		return nil
	}
	if err := c.transport.Apply(ctx, monitors); err != nil {
		return &TransportError{Op: "notify", Err: err}
	}
	c.logger.Debug("notified monitors", "count", len(monitors))
	return nil
}

// ValidateHasIDs fails with a NotFoundError naming every id that is absent.
// Run it before Remove so a partially wrong id list deletes nothing. The check
// and the removal are two round trips; another client may still delete an id
// in between.
func (c *Client) ValidateHasIDs(ctx context.Context, ids []ipc.ID) error {
	monitors, err := c.Monitors(ctx)
	if err != nil {
		return err
	}
	present := make(map[ipc.ID]struct{}, len(monitors))
	for _, m := range monitors {
		present[m.ID] = struct{}{}
	}

	var missing []ipc.ID
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return &NotFoundError{IDs: slices.Compact(missing)}
	}
	return nil
}

// Remove deletes the given monitors as one batch.
func (c *Client) Remove(ctx context.Context, ids []ipc.ID) error {
	if err := c.transport.Delete(ctx, ids); err != nil {
		var unknown *ipc.UnknownIDsError
		if errors.As(err, &unknown) {
			return &NotFoundError{IDs: unknown.IDs}
		}
		return &TransportError{Op: "remove monitors", Err: err}
	}
	c.logger.Debug("removed monitors", "ids", ipc.FormatIDs(ids))
	return nil
}

// RemoveAll clears the registry.
func (c *Client) RemoveAll(ctx context.Context) error {
	if err := c.transport.Clear(ctx); err != nil {
		return &TransportError{Op: "remove all monitors", Err: err}
	}
	c.logger.Debug("cleared registry")
	return nil
}
