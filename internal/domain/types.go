// Package domain defines the core entities shared by the resolver, the
// session channel and the rename flow.
package domain

// SessionID identifies a running notebook kernel session. It is supplied by
// the caller and never generated by the resolver.
type SessionID string

// Known query parameters understood by the editor pages.
const (
	QueryParamSessionID  = "session_id"
	QueryParamFilePath   = "file"
	QueryParamShowChrome = "show-chrome"
)

// SessionIDHeader carries the session identifier on HTTP API calls.
const SessionIDHeader = "Marimo-Session-Id"

// ConnectionState is the lifecycle state of a session channel.
type ConnectionState string

// Connection states, mirroring the browser WebSocket readyState values.
const (
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateClosing    ConnectionState = "closing"
	StateClosed     ConnectionState = "closed"
)

// RenameRequest asks the backend to rename the notebook attached to a session.
type RenameRequest struct {
	Filename   string `json:"filename"`
	UserID     string `json:"user_id,omitempty"`
	NotebookID string `json:"notebook_id,omitempty"`
}

// SuccessResponse is the body of a successful API call.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of a failed API call.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// KernelReady is the first message sent over a freshly opened session channel.
type KernelReady struct {
	Op        string    `json:"op"`
	SessionID SessionID `json:"session_id"`
}

// OpKernelReady is the Op value of KernelReady.
const OpKernelReady = "kernel-ready"

// FilenameChanged is pushed over the session channel after a rename.
type FilenameChanged struct {
	Op       string `json:"op"`
	Filename string `json:"filename"`
}

// OpFilenameChanged is the Op value of FilenameChanged.
const OpFilenameChanged = "filename-changed"
