package service

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/paylinelabs/payline/internal/audit/domain"
	"github.com/paylinelabs/payline/internal/clock"
	"github.com/paylinelabs/payline/internal/config"
	"github.com/paylinelabs/payline/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          auditdomain.Repository
	clock         clock.Clock
	retentionDays int
}

type Params struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   auditdomain.Repository
	Clock  clock.Clock
}

func New(p Params) auditdomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("audit.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		clock:         p.Clock,
		retentionDays: p.Config.Audit.RetentionDays,
	}
}

func (s *Service) Log(ctx context.Context, actorUserID *string, action, entityType, entityID string, details any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}

	entry := &auditdomain.AuditLog{
		ID:          s.genID.Generate(),
		ActorUserID: actorUserID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Details:     datatypes.JSON(raw),
		CreatedAt:   s.clock.Now(ctx),
	}
	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Error("audit insert failed", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, *pagination.PageInfo, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now(ctx).AddDate(0, 0, -s.retentionDays)
	removed, err := s.repo.DeleteOlderThan(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("audit retention purge", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed, nil
}
