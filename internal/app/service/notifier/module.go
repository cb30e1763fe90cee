package notifier

import "go.uber.org/fx"

// Module exposes the notification emitter via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
