package api

import (
	"github.com/meridian-lending/underwriter/internal/config"
	"github.com/meridian-lending/underwriter/internal/infrastructure"
	"github.com/meridian-lending/underwriter/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Worker     *config.WorkerConfig
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Worker:     &cfg.Worker,
		Pagination: cfg.API.Pagination,
	}
}
