// Package server exposes the HTTP API: plan, profile, FX and deal
// management, commission statements and reporting, and the sync trigger.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	auditdomain "github.com/paylinelabs/payline/internal/audit/domain"
	commdomain "github.com/paylinelabs/payline/internal/commission/domain"
	"github.com/paylinelabs/payline/internal/config"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	fxdomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	cfg config.Config
	db  *gorm.DB
	log *zap.Logger

	planSvc       plandomain.Service
	profileSvc    aedomain.Service
	fxSvc         fxdomain.Service
	dealSvc       dealdomain.Service
	commissionSvc commdomain.Service
	syncSvc       attiodomain.Service
	auditSvc      auditdomain.Service
	auditExport   auditdomain.ExportService
}

type Params struct {
	fx.In

	Config        config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	PlanSvc       plandomain.Service
	ProfileSvc    aedomain.Service
	FxSvc         fxdomain.Service
	DealSvc       dealdomain.Service
	CommissionSvc commdomain.Service
	SyncSvc       attiodomain.Service
	AuditSvc      auditdomain.Service
	AuditExport   auditdomain.ExportService
}

func New(p Params) *Server {
	return &Server{
		cfg:           p.Config,
		db:            p.DB,
		log:           p.Log.Named("server"),
		planSvc:       p.PlanSvc,
		profileSvc:    p.ProfileSvc,
		fxSvc:         p.FxSvc,
		dealSvc:       p.DealSvc,
		commissionSvc: p.CommissionSvc,
		syncSvc:       p.SyncSvc,
		auditSvc:      p.AuditSvc,
		auditExport:   p.AuditExport,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/healthz", s.Healthz)
	r.GET("/readyz", s.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/commission-plans", s.CreatePlan)
		v1.GET("/commission-plans", s.ListPlans)
		v1.GET("/commission-plans/:id", s.GetPlan)
		v1.PUT("/commission-plans/:id", s.UpdatePlan)
		v1.DELETE("/commission-plans/:id", s.DeletePlan)

		v1.POST("/ae-profiles", s.CreateProfile)
		v1.GET("/ae-profiles", s.ListProfiles)
		v1.GET("/ae-profiles/:id", s.GetProfile)
		v1.PUT("/ae-profiles/:id", s.UpdateProfile)
		v1.DELETE("/ae-profiles/:id", s.DeleteProfile)
		v1.PUT("/ae-profiles/:id/attio-member", s.LinkProfileMember)

		v1.PUT("/fx-rates", s.UpsertFxRate)
		v1.GET("/fx-rates", s.ListFxRates)

		v1.GET("/deals", s.ListDeals)
		v1.GET("/deals/:id", s.GetDeal)
		v1.PUT("/deals/:id/bonus-rules/:ruleId", s.ToggleDealBonusRule)

		v1.GET("/ae-profiles/:id/statement", s.GetStatement)
		v1.GET("/reporting", s.GetReporting)
		v1.GET("/leaderboard", s.GetLeaderboard)

		v1.POST("/sync/attio", s.TriggerSync)
		v1.GET("/sync/attio/last", s.GetLastSyncResult)

		v1.GET("/audit-logs", s.ListAuditLogs)
		v1.GET("/audit-logs/export", s.ExportAuditLogs)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(RunHTTP),
)

func RunHTTP(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:    s.cfg.HTTP.Addr,
		Handler: s.Router(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
