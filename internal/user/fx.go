package user

import (
	griddomain "github.com/smallbiznis/tilegrid/internal/grid/domain"
	"github.com/smallbiznis/tilegrid/internal/user/domain"
	"github.com/smallbiznis/tilegrid/internal/user/repository"
	"github.com/smallbiznis/tilegrid/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(func(grids griddomain.Service) domain.GridProvisioner { return grids }),
	fx.Provide(service.NewService),
)
