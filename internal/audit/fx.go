package audit

import (
	"github.com/smallbiznis/mywill/internal/audit/repository"
	"github.com/smallbiznis/mywill/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
