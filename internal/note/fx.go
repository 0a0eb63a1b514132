package note

import (
	"github.com/smallbiznis/mywill/internal/note/repository"
	"github.com/smallbiznis/mywill/internal/note/service"
	"go.uber.org/fx"
)

var Module = fx.Module("note.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
