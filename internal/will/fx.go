package will

import (
	"github.com/smallbiznis/mywill/internal/will/repository"
	"github.com/smallbiznis/mywill/internal/will/service"
	"go.uber.org/fx"
)

var Module = fx.Module("will.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
