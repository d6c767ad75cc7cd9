package assignment

import (
	"github.com/paylinelabs/payline/internal/assignment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assignment.service",
	fx.Provide(service.New),
)
