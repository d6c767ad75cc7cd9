package plan

import (
	"github.com/paylinelabs/payline/internal/plan/repository"
	"github.com/paylinelabs/payline/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
