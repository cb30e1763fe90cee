package payment

import "go.uber.org/fx"

// Module exposes the payment gateway client via Fx.
var Module = fx.Options(
	fx.Provide(NewHTTPGateway),
)
