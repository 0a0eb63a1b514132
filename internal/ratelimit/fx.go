package ratelimit

import "go.uber.org/fx"

// Module provides the login and password-reset throttle.
var Module = fx.Module("ratelimit.auth", fx.Provide(NewAuthLimiter))
