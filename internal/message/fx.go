package message

import (
	"github.com/smallbiznis/tilegrid/internal/message/repository"
	"github.com/smallbiznis/tilegrid/internal/message/service"
	"go.uber.org/fx"
)

var Module = fx.Module("message.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
