package audit

import (
	"github.com/smallbiznis/tilegrid/internal/audit/repository"
	"github.com/smallbiznis/tilegrid/internal/audit/service"
	"go.uber.org/fx"
)

// Module records privileged changes and denials, and lists them to grid owners.
var Module = fx.Module("audit.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
