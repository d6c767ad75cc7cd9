package attio

import (
	"github.com/paylinelabs/payline/internal/attio/client"
	"github.com/paylinelabs/payline/internal/attio/repository"
	"github.com/paylinelabs/payline/internal/attio/service"
	"go.uber.org/fx"
)

var Module = fx.Module("attio.sync",
	fx.Provide(client.New),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
