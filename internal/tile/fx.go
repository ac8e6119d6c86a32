package tile

import (
	"github.com/smallbiznis/tilegrid/internal/tile/repository"
	"github.com/smallbiznis/tilegrid/internal/tile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tile.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
