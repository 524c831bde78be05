package api

import (
	"net/http"

	"github.com/meridian-lending/underwriter/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	workflowsHandler := domain.Workflows.Handler()
	decisionsHandler := domain.Decisions.Handler()

	routes.Register(
		mux,
		workflowsHandler.Routes(),
		workflowsHandler.ApplicationRoutes(),
		decisionsHandler.Routes(),
		decisionsHandler.ConditionRoutes(),
		decisionsHandler.WorkflowRoutes(),
		domain.Audit.Handler().Routes(),
	)
}
