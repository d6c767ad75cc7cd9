package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/paylinelabs/payline/internal/clock"
	fxratedomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  fxratedomain.Repository
	clock clock.Clock
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  fxratedomain.Repository
	Clock clock.Clock
}

func New(p Params) fxratedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("fxrate.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Upsert(ctx context.Context, req fxratedomain.UpsertRequest) (*fxratedomain.FxRate, error) {
	code := strings.ToUpper(strings.TrimSpace(req.CurrencyCode))
	if code == "" || req.Year <= 0 || req.Rate <= 0 {
		return nil, fxratedomain.ErrInvalidRate
	}

	now := s.clock.Now(ctx)
	rate := &fxratedomain.FxRate{
		ID:           s.genID.Generate(),
		CurrencyCode: code,
		Year:         req.Year,
		Rate:         decimal.NewFromFloat(req.Rate),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Upsert(ctx, s.db, rate); err != nil {
		return nil, err
	}
	return rate, nil
}

func (s *Service) List(ctx context.Context) ([]fxratedomain.FxRate, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) ConverterForYear(ctx context.Context, year int) (fxratedomain.Converter, error) {
	rates, err := s.repo.ListByYear(ctx, s.db, year)
	if err != nil {
		return nil, err
	}
	return NewConverter(rates), nil
}
