package document

import (
	"github.com/smallbiznis/mywill/internal/document/repository"
	"github.com/smallbiznis/mywill/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
