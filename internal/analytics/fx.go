package analytics

import (
	"github.com/smallbiznis/mywill/internal/analytics/repository"
	"github.com/smallbiznis/mywill/internal/analytics/service"
	"github.com/smallbiznis/mywill/internal/analytics/sink"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(repository.Provide),
	fx.Provide(sink.New),
	fx.Provide(sink.AsSink),
	fx.Provide(service.New),
	fx.Invoke(sink.Register),
)
