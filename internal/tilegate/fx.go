package tilegate

import "go.uber.org/fx"

var Module = fx.Module("tilegate",
	fx.Provide(New),
)
