package channel

import (
	"github.com/smallbiznis/tilegrid/internal/channel/repository"
	"github.com/smallbiznis/tilegrid/internal/channel/service"
	"go.uber.org/fx"
)

var Module = fx.Module("channel.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(repository.NewChannelLookup),
	fx.Provide(service.NewService),
)
