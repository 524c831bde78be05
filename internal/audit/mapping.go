package audit

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/pkg/query"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "audit_trail", "a").
	Project("id", "ID").
	Project("seq", "Seq").
	Project("workflow_id", "WorkflowID").
	Project("event_type", "EventType").
	Project("agent_name", "AgentName").
	Project("description", "Description").
	Project("details", "Details").
	Project("user_name", "User").
	Project("timestamp", "Timestamp")

var defaultSort = query.SortField{Field: "Seq"}

// Filters contains optional filtering criteria for audit trail queries.
// Nil fields are ignored.
type Filters struct {
	WorkflowID *uuid.UUID `json:"workflow_id,omitempty"`
	EventType  *string    `json:"event_type,omitempty"`
	AgentName  *string    `json:"agent_name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("WorkflowID", f.WorkflowID).
		WhereEquals("EventType", f.EventType).
		WhereEquals("AgentName", f.AgentName)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if w := values.Get("workflow_id"); w != "" {
		if id, err := uuid.Parse(w); err == nil {
			f.WorkflowID = &id
		}
	}

	if e := values.Get("event_type"); e != "" {
		f.EventType = &e
	}

	if a := values.Get("agent_name"); a != "" {
		f.AgentName = &a
	}

	return f
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry

	err := s.Scan(
		&e.ID,
		&e.Seq,
		&e.WorkflowID,
		&e.EventType,
		&e.AgentName,
		&e.Description,
		&e.Details,
		&e.User,
		&e.Timestamp,
	)

	return e, err
}
