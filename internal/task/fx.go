package task

import (
	"github.com/smallbiznis/mywill/internal/task/repository"
	"github.com/smallbiznis/mywill/internal/task/service"
	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
