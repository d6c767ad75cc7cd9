package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paylinelabs/payline/internal/clock"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  plandomain.Repository
	clock clock.Clock
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  plandomain.Repository
	Clock clock.Clock
}

func New(p Params) plandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req plandomain.CreateRequest) (*plandomain.CommissionPlan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.EffectiveStartDate.IsZero() {
		return nil, plandomain.ErrInvalidPlan
	}

	now := s.clock.Now(ctx)
	plan := &plandomain.CommissionPlan{
		ID:                 s.genID.Generate(),
		Name:               name,
		BaseCommissionRate: decimal.NewFromFloat(req.BaseCommissionRate),
		EffectiveStartDate: req.EffectiveStartDate.UTC(),
		EffectiveEndDate:   normalizeEnd(req.EffectiveEndDate),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	plan.BonusRules = s.buildBonusRules(plan.ID, req.BonusRules, now)
	plan.PerformanceAccelerators = s.buildAccelerators(plan.ID, req.Accelerators, now)

	if err := s.repo.Insert(ctx, s.db, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) Get(ctx context.Context, id string) (*plandomain.CommissionPlan, error) {
	planID, err := parseID(id)
	if err != nil {
		return nil, plandomain.ErrPlanNotFound
	}
	plan, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) List(ctx context.Context) ([]plandomain.CommissionPlan, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) Update(ctx context.Context, id string, req plandomain.UpdateRequest) (*plandomain.CommissionPlan, error) {
	planID, err := parseID(id)
	if err != nil {
		return nil, plandomain.ErrPlanNotFound
	}

	existing, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, plandomain.ErrPlanNotFound
	}

	now := s.clock.Now(ctx)
	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.BaseCommissionRate != nil {
		existing.BaseCommissionRate = decimal.NewFromFloat(*req.BaseCommissionRate)
	}
	if req.EffectiveStartDate != nil {
		existing.EffectiveStartDate = req.EffectiveStartDate.UTC()
	}
	if req.EffectiveEndDate != nil {
		existing.EffectiveEndDate = normalizeEnd(req.EffectiveEndDate)
	}
	existing.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		if req.BonusRules != nil {
			rules := s.buildBonusRules(planID, req.BonusRules, now)
			if err := s.repo.ReplaceBonusRules(ctx, tx, planID, rules); err != nil {
				return err
			}
		}
		if req.Accelerators != nil {
			tiers := s.buildAccelerators(planID, req.Accelerators, now)
			if err := s.repo.ReplaceAccelerators(ctx, tx, planID, tiers); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, s.db, planID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	planID, err := parseID(id)
	if err != nil {
		return plandomain.ErrPlanNotFound
	}
	return s.repo.Delete(ctx, s.db, planID)
}

func (s *Service) buildBonusRules(planID snowflake.ID, inputs []plandomain.BonusRuleInput, now time.Time) []plandomain.BonusRule {
	rules := make([]plandomain.BonusRule, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = "Untitled Bonus"
		}
		enabled := true
		if in.Enabled != nil {
			enabled = *in.Enabled
		}
		rules = append(rules, plandomain.BonusRule{
			ID:                 s.genID.Generate(),
			CommissionPlanID:   planID,
			Name:               name,
			RateAdd:            decimal.NewFromFloat(in.RateAdd),
			Enabled:            enabled,
			EffectiveStartDate: in.EffectiveStartDate,
			EffectiveEndDate:   in.EffectiveEndDate,
			AttioAttributeID:   in.AttioAttributeID,
			AttioAttributeName: in.AttioAttributeName,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}
	return rules
}

func (s *Service) buildAccelerators(planID snowflake.ID, inputs []plandomain.AcceleratorInput, now time.Time) []plandomain.PerformanceAccelerator {
	tiers := make([]plandomain.PerformanceAccelerator, 0, len(inputs))
	for _, in := range inputs {
		tier := plandomain.PerformanceAccelerator{
			ID:               s.genID.Generate(),
			CommissionPlanID: planID,
			MinAttainment:    decimal.NewFromFloat(in.MinAttainment),
			CommissionRate:   decimal.NewFromFloat(in.CommissionRate),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if in.MaxAttainment != nil {
			max := decimal.NewFromFloat(*in.MaxAttainment)
			tier.MaxAttainment = &max
		}
		tiers = append(tiers, tier)
	}
	return tiers
}

func normalizeEnd(end *time.Time) *time.Time {
	if end == nil || end.IsZero() {
		return nil
	}
	utc := end.UTC()
	return &utc
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
