package config

import "go.uber.org/fx"

// Module wires application config and the gateway settings holder.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewSettingsHolder),
)
