package aeprofile

import (
	"github.com/paylinelabs/payline/internal/aeprofile/repository"
	"github.com/paylinelabs/payline/internal/aeprofile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("aeprofile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
