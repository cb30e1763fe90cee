package notification_log

import "go.uber.org/fx"

// Module exposes the notification log service via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
