package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/1broseidon/vdmctl/internal/mode"
)

// ID identifies a virtual monitor within the driver host's registry.
type ID uint32

// Monitor is the full state of one virtual monitor as stored by the driver host.
type Monitor struct {
	ID      ID          `json:"id"`
	Enabled bool        `json:"enabled"`
	Name    string      `json:"name,omitempty"`
	Modes   []mode.Mode `json:"modes"`
}

// CommandType represents different IPC command types
type CommandType string

const (
	CommandQuery  CommandType = "QUERY"
	CommandApply  CommandType = "APPLY"
	CommandDelete CommandType = "DELETE"
	CommandClear  CommandType = "CLEAR"
	CommandStatus CommandType = "STATUS"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Error codes carried by ERROR responses.
const (
	CodeInvalidRequest = 1001
	CodeUnknownCommand = 1002
	CodeStoreFailure   = 2001
	CodeUnknownIDs     = 3001
	CodeInvalidMonitor = 3002
)

// Request represents an IPC request from client to host
type Request struct {
	ID      string          `json:"id"`
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from host to client
type Response struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   int             `json:"code,omitempty"`
}

// MonitorsData is the data of a QUERY response.
type MonitorsData struct {
	Monitors []Monitor `json:"monitors"`
}

// ApplyPayload is the payload of an APPLY request. All monitors are applied as
// one batch.
type ApplyPayload struct {
	Monitors []Monitor `json:"monitors"`
}

// DeletePayload is the payload of a DELETE request. All ids are deleted as one
// batch.
type DeletePayload struct {
	IDs []ID `json:"ids"`
}

// StatusData represents the data returned by STATUS
type StatusData struct {
	Store         string `json:"store"`
	MonitorCount  int    `json:"monitor_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// NewRequest builds a request with a fresh id and an optional payload.
func NewRequest(cmd CommandType, payload interface{}) (*Request, error) {
	req := &Request{
		ID:      uuid.NewString(),
		Command: cmd,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	return req, nil
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(reqID string, data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		ID:     reqID,
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a code and message
func NewErrorResponse(reqID string, code int, errMsg string) *Response {
	return &Response{
		ID:     reqID,
		Status: StatusError,
		Error:  errMsg,
		Code:   code,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// HostError is an ERROR response returned by the driver host.
type HostError struct {
	Command CommandType
	Code    int
	Message string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host error (%s, code %d): %s", e.Command, e.Code, e.Message)
}
