package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/1broseidon/vdmctl/internal/audit"
)

// Handler answers protocol requests against a Store. It is shared by every
// listener of the reference host.
type Handler struct {
	store     Store
	logger    *slog.Logger
	audit     *audit.Logger
	startTime time.Time
}

// NewHandler creates a handler. logger and auditLog may be nil.
func NewHandler(store Store, logger *slog.Logger, auditLog *audit.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		store:     store,
		logger:    logger,
		audit:     auditLog,
		startTime: time.Now(),
	}
}

// HandleBytes decodes one request and encodes its response.
func (h *Handler) HandleBytes(data []byte) []byte {
	var resp *Response
	req, err := ParseRequest(data)
	if err != nil {
		resp = NewErrorResponse("", CodeInvalidRequest, fmt.Sprintf("Invalid request: %v", err))
	} else {
		resp = h.Handle(req)
	}

	out, err := resp.Marshal()
	if err != nil {
		h.logger.Error("failed to marshal response", "id", resp.ID, "err", err)
		out, _ = NewErrorResponse(resp.ID, CodeStoreFailure, "failed to marshal response").Marshal()
	}
	return out
}

// Handle processes a request and returns a response
func (h *Handler) Handle(req *Request) *Response {
	h.logger.Debug("request", "id", req.ID, "command", req.Command)

	switch req.Command {
	case CommandQuery:
		return h.handleQuery(req)
	case CommandApply:
		return h.handleApply(req)
	case CommandDelete:
		return h.handleDelete(req)
	case CommandClear:
		return h.handleClear(req)
	case CommandStatus:
		return h.handleStatus(req)
	default:
		return NewErrorResponse(req.ID, CodeUnknownCommand, fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// Snapshot returns the registry sorted by id.
func (h *Handler) Snapshot() ([]Monitor, error) {
	monitors, err := h.store.Snapshot()
	if err != nil {
		return nil, err
	}
	sort.Slice(monitors, func(i, j int) bool { return monitors[i].ID < monitors[j].ID })
	return monitors, nil
}

func (h *Handler) handleQuery(req *Request) *Response {
	monitors, err := h.Snapshot()
	if err != nil {
		return h.storeError(req, err)
	}
	if monitors == nil {
		monitors = []Monitor{}
	}
	return h.ok(req, MonitorsData{Monitors: monitors})
}

func (h *Handler) handleApply(req *Request) *Response {
	var payload ApplyPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return NewErrorResponse(req.ID, CodeInvalidRequest, fmt.Sprintf("Invalid apply payload: %v", err))
	}
	if err := ValidateBatch(payload.Monitors); err != nil {
		return h.storeError(req, err)
	}
	if err := h.store.Apply(payload.Monitors); err != nil {
		return h.storeError(req, err)
	}

	ids := make([]ID, len(payload.Monitors))
	for i, m := range payload.Monitors {
		ids[i] = m.ID
	}
	h.logger.Info("applied monitors", "ids", FormatIDs(ids))
	h.audit.Log(audit.ActionApply, map[string]interface{}{
		"count": len(ids),
		"ids":   FormatIDs(ids),
	})
	return h.ok(req, nil)
}

func (h *Handler) handleDelete(req *Request) *Response {
	var payload DeletePayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return NewErrorResponse(req.ID, CodeInvalidRequest, fmt.Sprintf("Invalid delete payload: %v", err))
	}
	if err := h.store.Delete(payload.IDs); err != nil {
		return h.storeError(req, err)
	}

	h.logger.Info("deleted monitors", "ids", FormatIDs(payload.IDs))
	h.audit.Log(audit.ActionDelete, map[string]interface{}{
		"count": len(payload.IDs),
		"ids":   FormatIDs(payload.IDs),
	})
	return h.ok(req, nil)
}

func (h *Handler) handleClear(req *Request) *Response {
	if err := h.store.Clear(); err != nil {
		return h.storeError(req, err)
	}
	h.logger.Info("cleared registry")
	h.audit.Log(audit.ActionClear, nil)
	return h.ok(req, nil)
}

func (h *Handler) handleStatus(req *Request) *Response {
	monitors, err := h.store.Snapshot()
	if err != nil {
		return h.storeError(req, err)
	}
	return h.ok(req, StatusData{
		Store:         h.store.Kind(),
		MonitorCount:  len(monitors),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

func (h *Handler) ok(req *Request, data interface{}) *Response {
	resp, err := NewOKResponse(req.ID, data)
	if err != nil {
		return NewErrorResponse(req.ID, CodeStoreFailure, err.Error())
	}
	return resp
}

func (h *Handler) storeError(req *Request, err error) *Response {
	var unknown *UnknownIDsError
	var invalid *InvalidMonitorError
	switch {
	case errors.As(err, &unknown):
		h.audit.Log(audit.ActionReject, map[string]interface{}{
			"command": string(req.Command),
			"missing": FormatIDs(unknown.IDs),
		})
		resp := NewErrorResponse(req.ID, CodeUnknownIDs, err.Error())
		resp.Data, _ = json.Marshal(DeletePayload{IDs: unknown.IDs})
		return resp
	case errors.As(err, &invalid):
		h.audit.Log(audit.ActionReject, map[string]interface{}{
			"command": string(req.Command),
			"reason":  invalid.Error(),
		})
		return NewErrorResponse(req.ID, CodeInvalidMonitor, err.Error())
	default:
		h.logger.Error("store failure", "command", req.Command, "err", err)
		return NewErrorResponse(req.ID, CodeStoreFailure, err.Error())
	}
}
