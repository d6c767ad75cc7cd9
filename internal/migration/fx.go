package migration

import (
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	auditdomain "github.com/paylinelabs/payline/internal/audit/domain"
	"github.com/paylinelabs/payline/internal/config"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	fxdomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(cfg config.Config, conn *gorm.DB) error {
		// SQLite is the dev/test path; AutoMigrate keeps it zero-setup.
		// Postgres goes through versioned embedded SQL.
		if cfg.DB.Driver != "postgres" {
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&plandomain.CommissionPlan{},
		&plandomain.BonusRule{},
		&plandomain.PerformanceAccelerator{},
		&aedomain.AEProfile{},
		&dealdomain.Deal{},
		&fxdomain.FxRate{},
		&attiodomain.AttioWorkspaceMember{},
		&auditdomain.AuditLog{},
	)
}
