package deal

import (
	"github.com/paylinelabs/payline/internal/deal/repository"
	"github.com/paylinelabs/payline/internal/deal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
