package decisions

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/pkg/handlers"
	"github.com/meridian-lending/underwriter/pkg/routes"
)

// Handler provides HTTP endpoints for decisions and conditions.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "decisions"),
	}
}

// Routes returns the route group definition for decision endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/decisions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/conditions", Handler: h.Conditions},
			{Method: "POST", Pattern: "/{id}/override", Handler: h.Override},
		},
	}
}

// WorkflowRoutes returns the workflow-scoped decision lookup. It lives in
// its own group so the pattern registers under the workflows prefix
// without overlapping the decision-id routes.
func (h *Handler) WorkflowRoutes() routes.Group {
	return routes.Group{
		Prefix: "/workflows",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}/decision", Handler: h.FindByWorkflow},
		},
	}
}

// ConditionRoutes returns the route group for condition lifecycle endpoints.
func (h *Handler) ConditionRoutes() routes.Group {
	return routes.Group{
		Prefix: "/conditions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/satisfy", Handler: h.Satisfy},
			{Method: "POST", Pattern: "/{id}/waive", Handler: h.Waive},
		},
	}
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

func (h *Handler) FindByWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.FindByWorkflow(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

func (h *Handler) Conditions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	conditions, err := h.sys.Conditions(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, conditions)
}

func (h *Handler) Override(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd OverrideCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.Override(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

type clearRequest struct {
	ClearedBy string `json:"cleared_by"`
	Notes     string `json:"notes"`
}

func (h *Handler) Satisfy(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, h.sys.Satisfy)
}

func (h *Handler) Waive(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, h.sys.Waive)
}

func (h *Handler) clear(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, uuid.UUID, string, string) (*Condition, error),
) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	c, err := op(r.Context(), id, req.ClearedBy, req.Notes)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}
