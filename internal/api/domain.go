package api

import (
	"github.com/meridian-lending/underwriter/internal/applications"
	"github.com/meridian-lending/underwriter/internal/audit"
	"github.com/meridian-lending/underwriter/internal/decisions"
	"github.com/meridian-lending/underwriter/internal/dispatch"
	"github.com/meridian-lending/underwriter/internal/workflows"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Applications applications.System
	Audit        audit.System
	Decisions    decisions.System
	Workflows    workflows.System
}

// NewDomain creates all domain systems from the API runtime. Dependency
// order: audit first (injected everywhere), then leaves, controller last.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	auditSystem := audit.New(db, runtime.Logger, runtime.Pagination)

	appsSystem := applications.New(db, runtime.Logger)

	dispatcher := dispatch.NewClient(runtime.Worker, runtime.Storage, runtime.Logger)

	decisionsSystem := decisions.New(db, auditSystem, runtime.Logger, runtime.Pagination)

	workflowsSystem := workflows.New(
		db,
		appsSystem,
		dispatcher,
		decisionsSystem,
		auditSystem,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Applications: appsSystem,
		Audit:        auditSystem,
		Decisions:    decisionsSystem,
		Workflows:    workflowsSystem,
	}
}
