package auth

import (
	"github.com/smallbiznis/mywill/internal/auth/repository"
	"github.com/smallbiznis/mywill/internal/auth/service"
	"github.com/smallbiznis/mywill/internal/auth/session"
	"github.com/smallbiznis/mywill/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	session.Module,
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(token.NewIssuer),
)
