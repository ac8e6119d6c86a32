package permission

import (
	"github.com/smallbiznis/tilegrid/internal/permission/repository"
	"github.com/smallbiznis/tilegrid/internal/permission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("permission.resolver",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewResolver),
)
