package fxrate

import (
	"github.com/paylinelabs/payline/internal/fxrate/repository"
	"github.com/paylinelabs/payline/internal/fxrate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fxrate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
