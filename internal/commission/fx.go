package commission

import (
	"github.com/paylinelabs/payline/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(service.New),
)
