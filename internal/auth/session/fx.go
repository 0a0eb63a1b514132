package session

import (
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Cfg   config.Config
	Clock clock.Clock `optional:"true"`
}

func provideManager(p Params) *Manager {
	return NewManager(p.Cfg, p.Clock)
}

var Module = fx.Module("auth.session",
	fx.Provide(provideManager),
)
