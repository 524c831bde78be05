package workflows_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/internal/decisions"
	"github.com/meridian-lending/underwriter/internal/workflows"
	"github.com/meridian-lending/underwriter/pkg/pagination"
	"github.com/meridian-lending/underwriter/pkg/routes"
)

type mockSystem struct {
	startFn        func(ctx context.Context, applicationID uuid.UUID) (*workflows.Workflow, error)
	cancelFn       func(ctx context.Context, id uuid.UUID, user *string) (*workflows.Workflow, error)
	callbackFn     func(ctx context.Context, id uuid.UUID, event workflows.CallbackEvent) error
	reviewFn       func(ctx context.Context, id uuid.UUID, cmd decisions.ReviewCommand) (*decisions.Decision, error)
	findFn         func(ctx context.Context, id uuid.UUID) (*workflows.Workflow, error)
	findByAppFn    func(ctx context.Context, applicationID uuid.UUID) (*workflows.Workflow, error)
	listFn         func(ctx context.Context, page pagination.PageRequest, filters workflows.Filters) (*pagination.PageResult[workflows.Workflow], error)
	analysesFn     func(ctx context.Context, workflowID uuid.UUID) ([]workflows.AgentAnalysis, error)
	listAnalysesFn func(ctx context.Context, page pagination.PageRequest, filters workflows.AnalysisFilters) (*pagination.PageResult[workflows.AgentAnalysis], error)
	riskFactorsFn  func(ctx context.Context, workflowID uuid.UUID) ([]workflows.RiskFactor, error)
	reasoningFn    func(ctx context.Context, workflowID uuid.UUID) ([]workflows.ReasoningStep, error)
	metricsFn      func(ctx context.Context) (*workflows.Metrics, error)
	snapshotFn     func(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}

func (m *mockSystem) Handler() *workflows.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) Start(ctx context.Context, applicationID uuid.UUID) (*workflows.Workflow, error) {
	return m.startFn(ctx, applicationID)
}

func (m *mockSystem) Cancel(ctx context.Context, id uuid.UUID, user *string) (*workflows.Workflow, error) {
	return m.cancelFn(ctx, id, user)
}

func (m *mockSystem) ApplyCallback(ctx context.Context, id uuid.UUID, event workflows.CallbackEvent) error {
	return m.callbackFn(ctx, id, event)
}

func (m *mockSystem) SubmitHumanReview(ctx context.Context, id uuid.UUID, cmd decisions.ReviewCommand) (*decisions.Decision, error) {
	return m.reviewFn(ctx, id, cmd)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*workflows.Workflow, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) FindByApplication(ctx context.Context, applicationID uuid.UUID) (*workflows.Workflow, error) {
	return m.findByAppFn(ctx, applicationID)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters workflows.Filters) (*pagination.PageResult[workflows.Workflow], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Analyses(ctx context.Context, workflowID uuid.UUID) ([]workflows.AgentAnalysis, error) {
	return m.analysesFn(ctx, workflowID)
}

func (m *mockSystem) ListAnalyses(ctx context.Context, page pagination.PageRequest, filters workflows.AnalysisFilters) (*pagination.PageResult[workflows.AgentAnalysis], error) {
	return m.listAnalysesFn(ctx, page, filters)
}

func (m *mockSystem) RiskFactors(ctx context.Context, workflowID uuid.UUID) ([]workflows.RiskFactor, error) {
	return m.riskFactorsFn(ctx, workflowID)
}

func (m *mockSystem) Reasoning(ctx context.Context, workflowID uuid.UUID) ([]workflows.ReasoningStep, error) {
	return m.reasoningFn(ctx, workflowID)
}

func (m *mockSystem) Metrics(ctx context.Context) (*workflows.Metrics, error) {
	return m.metricsFn(ctx)
}

func (m *mockSystem) Snapshot(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	return m.snapshotFn(ctx, id)
}

func newTestHandler(sys workflows.System) *workflows.Handler {
	return workflows.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func setupMux(h *workflows.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	for _, group := range []routes.Group{h.Routes(), h.ApplicationRoutes()} {
		for _, route := range group.Routes {
			pattern := route.Method + " " + group.Prefix + route.Pattern
			mux.HandleFunc(pattern, route.Handler)
		}
	}
	return mux
}

func sampleWorkflow() workflows.Workflow {
	return workflows.Workflow{
		ID:            workflowID,
		ApplicationID: applicationID,
		Status:        workflows.StatusCreditAnalysis,
		CurrentAgent:  workflows.AgentCredit,
		MaxRetries:    3,
	}
}

func TestHandlerStart(t *testing.T) {
	wf := sampleWorkflow()
	wf.Status = workflows.StatusInitializing

	sys := &mockSystem{
		startFn: func(_ context.Context, appID uuid.UUID) (*workflows.Workflow, error) {
			if appID != applicationID {
				return nil, workflows.ErrNotFound
			}
			return &wf, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	t.Run("accepts start request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(
			"POST", "/applications/"+applicationID.String()+"/workflow/start", nil,
		)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}

		var got workflows.Workflow
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Status != workflows.StatusInitializing {
			t.Errorf("status = %q, want initializing", got.Status)
		}
	})

	t.Run("rejects retry limit", func(t *testing.T) {
		sys.startFn = func(_ context.Context, _ uuid.UUID) (*workflows.Workflow, error) {
			return nil, workflows.ErrRetryLimitExceeded
		}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(
			"POST", "/applications/"+applicationID.String()+"/workflow/start", nil,
		)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/applications/not-a-uuid/workflow/start", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerCancel(t *testing.T) {
	var capturedUser *string
	wf := sampleWorkflow()
	wf.Status = workflows.StatusCancelled

	sys := &mockSystem{
		cancelFn: func(_ context.Context, _ uuid.UUID, user *string) (*workflows.Workflow, error) {
			capturedUser = user
			return &wf, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/workflows/"+workflowID.String()+"/cancel", nil)
	req.Header.Set("X-User", "j.alvarez")
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if capturedUser == nil || *capturedUser != "j.alvarez" {
		t.Errorf("user = %v, want j.alvarez", capturedUser)
	}
}

func TestHandlerCallback(t *testing.T) {
	var captured workflows.CallbackEvent
	sys := &mockSystem{
		callbackFn: func(_ context.Context, _ uuid.UUID, event workflows.CallbackEvent) error {
			captured = event
			return nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	t.Run("applies event", func(t *testing.T) {
		body := bytes.NewBufferString(`{
			"event_type": "agent_analysis",
			"data": {"agent_type": "credit", "analysis_text": "ok"}
		}`)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/workflows/"+workflowID.String()+"/callback", body)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.EventType != workflows.CallbackAgentAnalysis {
			t.Errorf("event type = %q", captured.EventType)
		}
	})

	t.Run("rejects invalid payload", func(t *testing.T) {
		sys.callbackFn = func(_ context.Context, _ uuid.UUID, _ workflows.CallbackEvent) error {
			return workflows.ErrInvalidPayload
		}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(
			"POST", "/workflows/"+workflowID.String()+"/callback",
			bytes.NewBufferString(`{"event_type": "agent_analysis"}`),
		)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerSubmitHumanReview(t *testing.T) {
	sys := &mockSystem{
		reviewFn: func(_ context.Context, _ uuid.UUID, cmd decisions.ReviewCommand) (*decisions.Decision, error) {
			return &decisions.Decision{
				WorkflowID:    workflowID,
				AIDecision:    "approved",
				HumanOverride: true,
				HumanDecision: cmd.Decision,
				FinalDecision: cmd.Decision,
			}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := bytes.NewBufferString(`{"decision": "denied", "notes": "Insufficient reserves.", "reviewer": "j.alvarez"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/workflows/"+workflowID.String()+"/review", body)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var d decisions.Decision
	if err := json.NewDecoder(rec.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.FinalDecision != "denied" {
		t.Errorf("final decision = %q, want denied", d.FinalDecision)
	}
}

func TestHandlerList(t *testing.T) {
	wf := sampleWorkflow()

	var captured workflows.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, f workflows.Filters) (*pagination.PageResult[workflows.Workflow], error) {
			captured = f
			result := pagination.NewPageResult([]workflows.Workflow{wf}, 1, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/workflows?status=credit_analysis", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.Status == nil || *captured.Status != workflows.StatusCreditAnalysis {
		t.Errorf("status filter = %v, want credit_analysis", captured.Status)
	}
}

func TestHandlerReasoning(t *testing.T) {
	sys := &mockSystem{
		reasoningFn: func(_ context.Context, _ uuid.UUID) ([]workflows.ReasoningStep, error) {
			return []workflows.ReasoningStep{
				{Event: "workflow_started", Description: "Underwriting workflow started"},
				{Event: "agent_completed", Agent: "credit", Description: "credit analysis completed"},
			}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/workflows/"+workflowID.String()+"/reasoning", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		ReasoningChain []workflows.ReasoningStep `json:"reasoning_chain"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.ReasoningChain) != 2 {
		t.Errorf("chain length = %d, want 2", len(body.ReasoningChain))
	}
}

func TestHandlerMetrics(t *testing.T) {
	sys := &mockSystem{
		metricsFn: func(_ context.Context) (*workflows.Metrics, error) {
			return &workflows.Metrics{TotalWorkflows: 12, Completed: 7}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/workflows/metrics", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var m workflows.Metrics
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.TotalWorkflows != 12 || m.Completed != 7 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestHandlerSnapshot(t *testing.T) {
	sys := &mockSystem{
		snapshotFn: func(_ context.Context, _ uuid.UUID) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(`{"case_id":"UW-2024-0042"}`)), nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/workflows/"+workflowID.String()+"/snapshot", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "UW-2024-0042") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
