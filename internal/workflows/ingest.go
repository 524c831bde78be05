package workflows

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/internal/applications"
	"github.com/meridian-lending/underwriter/internal/audit"
	"github.com/meridian-lending/underwriter/internal/decisions"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

// Callback event vocabulary accepted from the external worker.
const (
	CallbackWorkflowStarted = "workflow_started"
	CallbackAgentAnalysis   = "agent_analysis"
	CallbackDecisionMade    = "decision_made"
	CallbackWorkflowFailed  = "workflow_failed"
)

const updateStatus = `
	UPDATE underwriting_workflows
	SET status = $2, updated_at = now()
	WHERE id = $1`

const applyAnalysisUpdate = `
	UPDATE underwriting_workflows
	SET status = $2,
		current_agent = $3,
		progress_percent = $4,
		state_data = COALESCE($5, state_data),
		updated_at = now()
	WHERE id = $1`

const insertAnalysis = `
	INSERT INTO agent_analyses(
		id, workflow_id, agent_type, analysis_text, structured_data,
		recommendation, risk_factors, conditions, confidence_score,
		processing_time_ms, tokens_used)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const countAnalyses = `
	SELECT COUNT(DISTINCT agent_type) FROM agent_analyses WHERE workflow_id = $1`

const insertRiskFactor = `
	INSERT INTO risk_factors(
		id, workflow_id, category, severity, description, mitigation, identified_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

const applyDecisionUpdate = `
	UPDATE underwriting_workflows
	SET status = $2,
		current_agent = '',
		progress_percent = 100,
		state_data = COALESCE($3, state_data),
		completed_at = CASE WHEN $4 THEN now() ELSE completed_at END,
		total_duration_seconds = CASE
			WHEN $4 AND started_at IS NOT NULL
			THEN CAST(EXTRACT(EPOCH FROM now() - started_at) AS integer)
			ELSE total_duration_seconds
		END,
		updated_at = now()
	WHERE id = $1`

type startedPayload struct {
	Status string `json:"status"`
}

type analysisPayload struct {
	AgentType        string          `json:"agent_type"`
	AnalysisText     string          `json:"analysis_text"`
	StructuredData   json.RawMessage `json:"structured_data"`
	Recommendation   string          `json:"recommendation"`
	RiskFactors      json.RawMessage `json:"risk_factors"`
	Conditions       json.RawMessage `json:"conditions"`
	ConfidenceScore  *float64        `json:"confidence_score"`
	ProcessingTimeMS *int            `json:"processing_time_ms"`
	TokensUsed       *int            `json:"tokens_used"`
	StateData        json.RawMessage `json:"state_data"`
}

type riskFactorPayload struct {
	Category     string `json:"category"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
	Mitigation   string `json:"mitigation"`
	IdentifiedBy string `json:"identified_by"`
}

type decisionPayload struct {
	Decision            string              `json:"decision"`
	RiskScore           int                 `json:"risk_score"`
	Confidence          *float64            `json:"confidence"`
	DecisionMemo        string              `json:"decision_memo"`
	ExecutiveSummary    string              `json:"executive_summary"`
	Conditions          json.RawMessage     `json:"conditions"`
	RiskFactors         []riskFactorPayload `json:"risk_factors"`
	RequiresHumanReview *bool               `json:"requires_human_review"`
	StateData           json.RawMessage     `json:"state_data"`
}

type failurePayload struct {
	Error string `json:"error"`
}

// ingestOutcome carries the side effects that must run after the
// ingestion transaction commits.
type ingestOutcome struct {
	// rejected is set when the payload failed validation; the transaction
	// still commits so the audit error entry is preserved.
	rejected error
	// update, when set, copies decision fields onto the application.
	update *applications.DecisionUpdate
	// revert reverts the application to submitted after a failure event.
	revert bool
}

// ApplyCallback validates and applies one worker event inside a
// transaction holding the workflow row lock. Events for terminal
// workflows are recorded in the audit trail but never change state.
func (r *repo) ApplyCallback(ctx context.Context, id uuid.UUID, event CallbackEvent) error {
	switch event.EventType {
	case CallbackWorkflowStarted, CallbackAgentAnalysis,
		CallbackDecisionMade, CallbackWorkflowFailed:
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidPayload, event.EventType)
	}

	var applicationID uuid.UUID

	out, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*ingestOutcome, error) {
		wf, err := lockWorkflow(ctx, tx, lockByID, id)
		if err != nil {
			return nil, repository.MapError(
				fmt.Errorf("lock workflow: %w", err), ErrNotFound, ErrDuplicate,
			)
		}
		applicationID = wf.ApplicationID

		if IsTerminal(wf.Status) {
			err := r.log.AppendTx(ctx, tx, audit.Record{
				WorkflowID: wf.ID,
				EventType:  audit.EventError,
				Description: fmt.Sprintf(
					"Callback %s ignored: workflow is %s", event.EventType, wf.Status,
				),
				Details: event.Data,
			})
			if err != nil {
				return nil, err
			}
			return &ingestOutcome{}, nil
		}

		switch event.EventType {
		case CallbackWorkflowStarted:
			return r.applyStarted(ctx, tx, wf, event.Data)
		case CallbackAgentAnalysis:
			return r.applyAnalysis(ctx, tx, wf, event.Data)
		case CallbackDecisionMade:
			return r.applyDecision(ctx, tx, wf, event.Data)
		default:
			return r.applyFailure(ctx, tx, wf, event.Data)
		}
	})
	if err != nil {
		return err
	}

	if out.update != nil {
		if err := r.apps.RecordDecision(ctx, applicationID, *out.update); err != nil {
			r.logger.Error("record application decision",
				"application_id", applicationID, "error", err)
		}
	}

	if out.revert {
		err := r.apps.SetStatus(ctx, applicationID, applications.StatusSubmitted)
		if err != nil {
			r.logger.Error("revert application status",
				"application_id", applicationID, "error", err)
		}
	}

	return out.rejected
}

func (r *repo) applyStarted(
	ctx context.Context,
	tx *sql.Tx,
	wf *Workflow,
	data json.RawMessage,
) (*ingestOutcome, error) {
	var p startedPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return r.rejectPayload(ctx, tx, wf, CallbackWorkflowStarted, err.Error(), data)
		}
	}

	status := p.Status
	if status == "" {
		status = StatusInitializing
	}
	if !ValidStatus(status) || IsTerminal(status) {
		return r.rejectPayload(
			ctx, tx, wf, CallbackWorkflowStarted,
			fmt.Sprintf("status %q outside workflow vocabulary", p.Status), data,
		)
	}

	if err := repository.ExecExpectOne(ctx, tx, updateStatus, wf.ID, status); err != nil {
		return nil, fmt.Errorf("update workflow status: %w", err)
	}

	err := r.log.AppendTx(ctx, tx, audit.Record{
		WorkflowID:  wf.ID,
		EventType:   audit.EventAgentStarted,
		Description: fmt.Sprintf("Worker confirmed start, status %s", status),
		Details:     data,
	})
	if err != nil {
		return nil, err
	}

	return &ingestOutcome{}, nil
}

func (r *repo) applyAnalysis(
	ctx context.Context,
	tx *sql.Tx,
	wf *Workflow,
	data json.RawMessage,
) (*ingestOutcome, error) {
	var p analysisPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return r.rejectPayload(ctx, tx, wf, CallbackAgentAnalysis, err.Error(), data)
	}
	if p.AgentType == "" || p.AnalysisText == "" {
		return r.rejectPayload(
			ctx, tx, wf, CallbackAgentAnalysis,
			"agent_type and analysis_text are required", data,
		)
	}

	agent := normalizeAgentType(p.AgentType)
	analysisID := uuid.New()

	_, err := tx.ExecContext(
		ctx, insertAnalysis,
		analysisID,
		wf.ID,
		agent,
		p.AnalysisText,
		jsonOrDefault(p.StructuredData, `{}`),
		p.Recommendation,
		jsonOrDefault(p.RiskFactors, `[]`),
		jsonOrDefault(p.Conditions, `[]`),
		p.ConfidenceScore,
		p.ProcessingTimeMS,
		p.TokensUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("insert analysis: %w", err)
	}

	var completed int
	if err := tx.QueryRowContext(ctx, countAnalyses, wf.ID).Scan(&completed); err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	// Progress never moves backwards even if stages repeat.
	progress := progressFor(completed)
	if progress < wf.ProgressPercent {
		progress = wf.ProgressPercent
	}

	err = repository.ExecExpectOne(
		ctx, tx, applyAnalysisUpdate,
		wf.ID,
		statusForAgent(agent, wf.Status),
		agent,
		progress,
		nullableJSON(p.StateData),
	)
	if err != nil {
		return nil, fmt.Errorf("update workflow progress: %w", err)
	}

	err = r.log.AppendTx(ctx, tx, audit.Record{
		WorkflowID:  wf.ID,
		EventType:   audit.EventAgentCompleted,
		AgentName:   agent,
		Description: fmt.Sprintf("%s analysis completed", agent),
		Details: map[string]any{
			"analysis_id":    analysisID,
			"recommendation": p.Recommendation,
		},
	})
	if err != nil {
		return nil, err
	}

	return &ingestOutcome{}, nil
}

func (r *repo) applyDecision(
	ctx context.Context,
	tx *sql.Tx,
	wf *Workflow,
	data json.RawMessage,
) (*ingestOutcome, error) {
	var p decisionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return r.rejectPayload(ctx, tx, wf, CallbackDecisionMade, err.Error(), data)
	}
	if p.Decision == "" || p.DecisionMemo == "" {
		return r.rejectPayload(
			ctx, tx, wf, CallbackDecisionMade,
			"decision and decision_memo are required", data,
		)
	}
	for _, rf := range p.RiskFactors {
		if rf.Description == "" {
			return r.rejectPayload(
				ctx, tx, wf, CallbackDecisionMade,
				"risk factor description is required", data,
			)
		}
	}

	exists, err := r.decisions.ExistsTx(ctx, tx, wf.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		err := r.log.AppendTx(ctx, tx, audit.Record{
			WorkflowID:  wf.ID,
			EventType:   audit.EventDecisionMade,
			Description: "Duplicate decision callback ignored",
			Details:     data,
		})
		if err != nil {
			return nil, err
		}
		r.logger.Warn("duplicate decision callback", "workflow_id", wf.ID)
		return &ingestOutcome{}, nil
	}

	decided := normalizeDecision(p.Decision)
	confidence := 0.85
	if p.Confidence != nil {
		confidence = *p.Confidence
	}

	_, err = r.decisions.CreateTx(ctx, tx, wf.ID, decisions.CreateCommand{
		AIDecision:         decided,
		AIRiskScore:        p.RiskScore,
		AIConfidence:       confidence,
		DecisionMemo:       p.DecisionMemo,
		ExecutiveSummary:   p.ExecutiveSummary,
		ProposedConditions: jsonOrDefault(p.Conditions, `[]`),
	})
	if err != nil {
		return nil, err
	}

	for _, rf := range p.RiskFactors {
		identifiedBy := rf.IdentifiedBy
		if identifiedBy == "" {
			identifiedBy = "decision_agent"
		}
		_, err := tx.ExecContext(
			ctx, insertRiskFactor,
			uuid.New(),
			wf.ID,
			normalizeCategory(rf.Category),
			normalizeSeverity(rf.Severity),
			rf.Description,
			rf.Mitigation,
			identifiedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("insert risk factor: %w", err)
		}
	}

	requiresReview := true
	if p.RequiresHumanReview != nil {
		requiresReview = *p.RequiresHumanReview
	}

	status := StatusCompleted
	if requiresReview {
		status = StatusHumanReview
	}

	// completed_at is stamped only on the terminal transition; a workflow
	// parked in human_review completes when the reviewer submits.
	err = repository.ExecExpectOne(
		ctx, tx, applyDecisionUpdate,
		wf.ID,
		status,
		nullableJSON(p.StateData),
		status == StatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("apply decision update: %w", err)
	}

	err = r.log.AppendTx(ctx, tx, audit.Record{
		WorkflowID: wf.ID,
		EventType:  audit.EventDecisionMade,
		Description: fmt.Sprintf(
			"AI Decision: %s (Risk Score: %d)", decided, p.RiskScore,
		),
		Details: data,
	})
	if err != nil {
		return nil, err
	}

	update := &applications.DecisionUpdate{
		Recommendation:      decided,
		RiskScore:           p.RiskScore,
		Confidence:          confidence,
		RequiresHumanReview: requiresReview,
	}
	if !requiresReview {
		applicationStatus := decisions.ApplicationStatus(decided)
		update.Status = &applicationStatus
	}

	return &ingestOutcome{update: update}, nil
}

func (r *repo) applyFailure(
	ctx context.Context,
	tx *sql.Tx,
	wf *Workflow,
	data json.RawMessage,
) (*ingestOutcome, error) {
	var p failurePayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return r.rejectPayload(ctx, tx, wf, CallbackWorkflowFailed, err.Error(), data)
		}
	}

	message := p.Error
	if message == "" {
		message = "Unknown error"
	}

	if err := repository.ExecExpectOne(
		ctx, tx, markTerminal, wf.ID, StatusFailed, message,
	); err != nil {
		return nil, fmt.Errorf("mark workflow failed: %w", err)
	}

	err := r.log.AppendTx(ctx, tx, audit.Record{
		WorkflowID:  wf.ID,
		EventType:   audit.EventError,
		Description: fmt.Sprintf("Workflow failed: %s", message),
		Details:     data,
	})
	if err != nil {
		return nil, err
	}

	return &ingestOutcome{revert: true}, nil
}

// rejectPayload records the malformed event in the audit trail and leaves
// the workflow in its last-known-good state. The transaction commits so
// the evidence survives; the caller sees ErrInvalidPayload.
func (r *repo) rejectPayload(
	ctx context.Context,
	tx *sql.Tx,
	wf *Workflow,
	eventType, reason string,
	data json.RawMessage,
) (*ingestOutcome, error) {
	err := r.log.AppendTx(ctx, tx, audit.Record{
		WorkflowID: wf.ID,
		EventType:  audit.EventError,
		Description: fmt.Sprintf(
			"Rejected %s callback: %s", eventType, reason,
		),
		Details: data,
	})
	if err != nil {
		return nil, err
	}

	return &ingestOutcome{
		rejected: fmt.Errorf("%w: %s", ErrInvalidPayload, reason),
	}, nil
}

func jsonOrDefault(raw json.RawMessage, fallback string) []byte {
	if len(raw) == 0 {
		return []byte(fallback)
	}
	return raw
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
