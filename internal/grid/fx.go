package grid

import (
	"github.com/smallbiznis/tilegrid/internal/grid/domain"
	"github.com/smallbiznis/tilegrid/internal/grid/repository"
	"github.com/smallbiznis/tilegrid/internal/grid/service"
	tiledomain "github.com/smallbiznis/tilegrid/internal/tile/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("grid.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(func(tiles tiledomain.Service) domain.TileSeeder { return tiles }),
	fx.Provide(service.NewService),
)
