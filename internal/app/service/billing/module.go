package billing

import "go.uber.org/fx"

// Module exposes the billing manager and its scheduler via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(runScheduler),
)
