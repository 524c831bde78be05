// Package audit implements the append-only audit trail for underwriting
// workflows. Every significant event is recorded as an immutable entry;
// the trail is the canonical reconstruction of what happened to a workflow.
// No update or delete operations are exposed.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type vocabulary for audit trail entries.
const (
	EventWorkflowStarted = "workflow_started"
	EventAgentStarted    = "agent_started"
	EventAgentCompleted  = "agent_completed"
	EventDecisionMade    = "decision_made"
	EventHumanReview     = "human_review"
	EventOverride        = "override"
	EventError           = "error"
)

// Entry is one immutable audit trail record. Seq is a monotonic per-table
// ordering column that preserves insertion order within a workflow.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	Seq         int64           `json:"seq"`
	WorkflowID  uuid.UUID       `json:"workflow_id"`
	EventType   string          `json:"event_type"`
	AgentName   string          `json:"agent_name,omitempty"`
	Description string          `json:"description"`
	Details     json.RawMessage `json:"details"`
	User        *string         `json:"user,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Record carries the data for a new audit trail entry. Details may be any
// JSON-marshalable value; nil is stored as an empty object.
type Record struct {
	WorkflowID  uuid.UUID
	EventType   string
	AgentName   string
	Description string
	Details     any
	User        *string
}

func (r Record) detailsJSON() (json.RawMessage, error) {
	if r.Details == nil {
		return json.RawMessage(`{}`), nil
	}
	if raw, ok := r.Details.(json.RawMessage); ok {
		if len(raw) == 0 {
			return json.RawMessage(`{}`), nil
		}
		return raw, nil
	}
	return json.Marshal(r.Details)
}
