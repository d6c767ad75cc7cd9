package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo dealdomain.Repository
}

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo dealdomain.Repository
}

func New(p Params) dealdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("deal.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*dealdomain.Deal, error) {
	dealID, err := parseID(id)
	if err != nil {
		return nil, dealdomain.ErrDealNotFound
	}
	deal, err := s.repo.FindByID(ctx, s.db, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, dealdomain.ErrDealNotFound
	}
	return deal, nil
}

func (s *Service) List(ctx context.Context, filter dealdomain.ListFilter) ([]dealdomain.Deal, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) ToggleBonusRule(ctx context.Context, dealID, bonusRuleID string, enabled bool) (*dealdomain.Deal, error) {
	deal, err := s.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	ruleID, err := parseID(bonusRuleID)
	if err != nil {
		return nil, dealdomain.ErrDealNotFound
	}

	want := ruleID.String()
	next := make([]string, 0, len(deal.AppliedBonusRuleIDs)+1)
	found := false
	for _, id := range deal.AppliedBonusRuleIDs {
		if id == want {
			found = true
			if !enabled {
				continue
			}
		}
		next = append(next, id)
	}
	if enabled && !found {
		next = append(next, want)
	}
	if enabled == found {
		return deal, nil
	}

	if err := s.repo.UpdateAppliedBonusRules(ctx, s.db, deal.ID, next); err != nil {
		return nil, err
	}
	deal.AppliedBonusRuleIDs = datatypes.JSONSlice[string](next)
	s.log.Info("bonus rule toggled",
		zap.String("deal_id", deal.ID.String()),
		zap.String("bonus_rule_id", want),
		zap.Bool("enabled", enabled))
	return deal, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
