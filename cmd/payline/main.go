package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paylinelabs/payline/internal/aeprofile"
	"github.com/paylinelabs/payline/internal/assignment"
	"github.com/paylinelabs/payline/internal/attio"
	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	"github.com/paylinelabs/payline/internal/audit"
	"github.com/paylinelabs/payline/internal/clock"
	"github.com/paylinelabs/payline/internal/commission"
	"github.com/paylinelabs/payline/internal/config"
	"github.com/paylinelabs/payline/internal/deal"
	"github.com/paylinelabs/payline/internal/fxrate"
	"github.com/paylinelabs/payline/internal/migration"
	"github.com/paylinelabs/payline/internal/observability"
	"github.com/paylinelabs/payline/internal/plan"
	"github.com/paylinelabs/payline/internal/redis"
	"github.com/paylinelabs/payline/internal/scheduler"
	"github.com/paylinelabs/payline/internal/seed"
	"github.com/paylinelabs/payline/internal/server"
	"github.com/paylinelabs/payline/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "payline",
		Short:   "Payline commission engine CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newServeCmd(), newSyncCmd(), newSchedulerCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the demo dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStartStop(2*time.Minute,
				coreModules(),
				fx.Invoke(func(conn *gorm.DB) error {
					return seed.EnsureDemoData(conn)
				}),
			)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				coreModules(),
				domainModules(),
				server.Module,
			).Run()
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one Attio reconciliation pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStartStop(10*time.Minute,
				coreModules(),
				domainModules(),
				fx.Invoke(runSyncOnce),
			)
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the background sync scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				coreModules(),
				domainModules(),
				scheduler.Module,
			).Run()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			fx.New(
				coreModules(),
				domainModules(),
				server.Module,
				scheduler.Module,
			).Run()
			return nil
		},
	}
}

func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
	)
}

func domainModules() fx.Option {
	return fx.Options(
		plan.Module,
		aeprofile.Module,
		fxrate.Module,
		deal.Module,
		commission.Module,
		audit.Module,
		assignment.Module,
		attio.Module,
	)
}

func runMigrate() error {
	return runStartStop(2*time.Minute,
		coreModules(),
		migration.Module,
	)
}

// runStartStop drives an fx app through one start/stop cycle for one-shot
// commands.
func runStartStop(timeout time.Duration, opts ...fx.Option) error {
	app := fx.New(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(context.Background())
}

func runSyncOnce(lc fx.Lifecycle, svc attiodomain.Service, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			result, err := svc.Run(ctx, nil)
			if err != nil {
				return err
			}
			log.Info("sync completed",
				zap.String("run_id", result.RunID),
				zap.Int("members_upserted", result.MembersUpserted),
				zap.Int("deals_upserted", result.DealsUpserted),
				zap.Int("conflicts", result.Conflicts))
			return nil
		},
	})
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
