package audit

import (
	"github.com/paylinelabs/payline/internal/audit/repository"
	"github.com/paylinelabs/payline/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewExportService),
)
