package agentclient

import "time"

// The types below mirror the session service's wire contract (DESIGN.md
// C5): JSON over HTTP, session-oriented. createSessionRequest additionally
// carries an idempotency_key field.

type createSessionRequest struct {
	Title string `json:"title"`
	// IdempotencyKey is a fresh UUID generated per RunAgent call. The client
	// never resends a create request, and a retried RunAgent attempt sends a
	// new key, so the key does not tie separate attempts together.
	IdempotencyKey string `json:"idempotency_key"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

type messagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type promptRequest struct {
	Agent string        `json:"agent"`
	Parts []messagePart `json:"parts"`
}

// statusType enumerates the four states session_status can report for a
// given session id.
type statusType string

const (
	statusBusy  statusType = "busy"
	statusIdle  statusType = "idle"
	statusRetry statusType = "retry"
	statusError statusType = "error"
)

type sessionStatus struct {
	Type  statusType `json:"type"`
	Next  *int       `json:"next,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type statusResponse map[string]sessionStatus

type messageInfo struct {
	Role string `json:"role"`
}

type message struct {
	Info  messageInfo   `json:"info"`
	Parts []messagePart `json:"parts"`
}

type messagesResponse []message

// LeakedSession records a session whose cleanup could not be confirmed
// after exhausting the configured retry budget — observable, never fatal.
type LeakedSession struct {
	SessionID string
	AgentName string
	StepID    string
	LastError string
	ObservedAt time.Time
}
