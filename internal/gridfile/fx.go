package gridfile

import (
	"github.com/smallbiznis/tilegrid/internal/gridfile/repository"
	"github.com/smallbiznis/tilegrid/internal/gridfile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gridfile.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
