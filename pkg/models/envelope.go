package models

import (
	"time"

	"github.com/google/uuid"
)

// Wire message types exchanged with worker agents.
const (
	MessageTypeTaskAssignment   = "task_assignment"
	MessageTypeCompletionReport = "completion_report"
)

// EnvelopeSender is the sender id stamped on every outbound envelope.
const EnvelopeSender = "supervisor"

// ReportStatus is the terminal status of a worker's completion report.
type ReportStatus string

const (
	ReportStatusSuccess ReportStatus = "SUCCESS"
	ReportStatusFailure ReportStatus = "FAILURE"

	// ReportStatusClarification is emitted by some workers instead of a
	// results.clarification_needed flag. Tolerated on input, never sent.
	ReportStatusClarification ReportStatus = "CLARIFICATION_NEEDED"
)

// TaskSpec names the operation a worker should perform and carries its
// agent-specific parameters.
type TaskSpec struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// TaskEnvelope is the JSON body POSTed to a worker's /process endpoint.
type TaskEnvelope struct {
	MessageID string    `json:"message_id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Type      string    `json:"type"`
	Task      TaskSpec  `json:"task"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTaskEnvelope builds an envelope addressed to agentID with a fresh
// message id and the current UTC time.
func NewTaskEnvelope(agentID, taskName string, parameters map[string]any) *TaskEnvelope {
	return &TaskEnvelope{
		MessageID: uuid.NewString(),
		Sender:    EnvelopeSender,
		Recipient: agentID,
		Type:      MessageTypeTaskAssignment,
		Task: TaskSpec{
			Name:       taskName,
			Parameters: parameters,
		},
		Timestamp: time.Now().UTC(),
	}
}

// CompletionReport is the JSON body a worker returns from /process.
// Workers are not fully trusted: fields may be missing or malformed and
// the dispatcher repairs what it can rather than failing the request.
type CompletionReport struct {
	MessageID        string         `json:"message_id,omitempty"`
	Sender           string         `json:"sender,omitempty"`
	Recipient        string         `json:"recipient,omitempty"`
	Type             string         `json:"type,omitempty"`
	RelatedMessageID string         `json:"related_message_id,omitempty"`
	Status           ReportStatus   `json:"status"`
	Results          map[string]any `json:"results,omitempty"`

	// Timestamp stays a string: workers emit it in assorted formats and
	// the supervisor never consumes it.
	Timestamp string `json:"timestamp,omitempty"`
}
