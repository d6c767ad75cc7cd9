package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	"github.com/paylinelabs/payline/internal/clock"
	commdomain "github.com/paylinelabs/payline/internal/commission/domain"
	"github.com/paylinelabs/payline/internal/commission/engine"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	fxdomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	"github.com/paylinelabs/payline/internal/numeric"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	"github.com/paylinelabs/payline/internal/target"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	profileRepo aedomain.Repository
	profileSvc  aedomain.Service
	dealRepo    dealdomain.Repository
	planRepo    plandomain.Repository
	fx          fxdomain.Service
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	ProfileRepo aedomain.Repository
	ProfileSvc  aedomain.Service
	DealRepo    dealdomain.Repository
	PlanRepo    plandomain.Repository
	Fx          fxdomain.Service
}

func New(p Params) commdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("commission.service"),
		clock:       p.Clock,
		profileRepo: p.ProfileRepo,
		profileSvc:  p.ProfileSvc,
		dealRepo:    p.DealRepo,
		planRepo:    p.PlanRepo,
		fx:          p.Fx,
	}
}

// period resolves the reporting window for a view, defaulting year and
// quarter to the service clock.
type period struct {
	view    target.View
	year    int
	quarter int
	from    time.Time
	to      time.Time
	label   string
}

func (s *Service) resolvePeriod(ctx context.Context, view string, year, quarter int) (period, error) {
	v, ok := target.ParseView(view)
	if !ok {
		if view == "" {
			v = target.ViewQTD
		} else {
			return period{}, commdomain.ErrInvalidPeriod
		}
	}

	now := s.clock.Now(ctx)
	nowYear, nowQuarter := target.QuarterOf(now)
	if year == 0 {
		year = nowYear
	}
	if quarter == 0 {
		quarter = nowQuarter
	}
	if quarter < 1 || quarter > 4 {
		return period{}, commdomain.ErrInvalidPeriod
	}

	p := period{view: v, year: year, quarter: quarter}
	switch v {
	case target.ViewQTD:
		p.from, p.to = target.QuarterRangeUTC(year, quarter)
		p.label = fmt.Sprintf("Q%d %d", quarter, year)
	case target.ViewYTD:
		p.from = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		p.to = time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
		p.label = fmt.Sprintf("FY %d", year)
	case target.ViewPrevQ:
		prevYear, prevQ := target.PreviousQuarter(year, quarter)
		p.from, p.to = target.QuarterRangeUTC(prevYear, prevQ)
		p.label = fmt.Sprintf("Q%d %d", prevQ, prevYear)
	}
	return p, nil
}

func (s *Service) Statement(ctx context.Context, req commdomain.StatementRequest) (*commdomain.QuarterStatement, error) {
	profile, err := s.profileSvc.Get(ctx, req.AEProfileID)
	if err != nil {
		if errors.Is(err, aedomain.ErrProfileNotFound) {
			return nil, commdomain.ErrProfileNotFound
		}
		return nil, err
	}

	p, err := s.resolvePeriod(ctx, req.View, req.Year, req.Quarter)
	if err != nil {
		return nil, err
	}

	plans, err := s.planRepo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	converter, err := s.fx.ConverterForYear(ctx, p.year)
	if err != nil {
		return nil, err
	}

	return s.buildStatement(ctx, profile, p, plans, converter)
}

func (s *Service) buildStatement(ctx context.Context, profile *aedomain.AEProfile, p period, plans []plandomain.CommissionPlan, converter fxdomain.Converter) (*commdomain.QuarterStatement, error) {
	tr := target.Calculate(target.Input{
		AnnualTarget:   numeric.Normalize(profile.AnnualTarget),
		StartDate:      profile.StartDate,
		View:           p.view,
		CurrentYear:    p.year,
		CurrentQuarter: p.quarter,
	})

	deals, err := s.dealRepo.List(ctx, s.db, dealdomain.ListFilter{
		AEProfileID: &profile.ID,
		WonOnly:     true,
		From:        &p.from,
		To:          &p.to,
	})
	if err != nil {
		return nil, err
	}

	var (
		lineItems       []commdomain.DealLineItem
		totalClosedWon  float64
		totalCommission float64
	)
	for i := range deals {
		deal := &deals[i]
		totalClosedWon += numeric.Normalize(deal.Amount)

		item := commdomain.DealLineItem{
			DealID:               deal.ID.String(),
			DealName:             deal.DealName,
			AccountName:          deal.AccountName,
			CloseDate:            deal.CloseDate,
			Amount:               numeric.Normalize(deal.Amount),
			CommissionableAmount: numeric.Normalize(deal.CommissionableAmount),
		}

		plan, resolveErr := plandomain.ResolveForCloseDate(plans, deal.CloseDate)
		if resolveErr != nil {
			item.PlanError = "No active commission plan for close date"
			lineItems = append(lineItems, item)
			continue
		}

		pricing := engine.PriceDeal(deal, plan)
		planID := plan.ID.String()
		item.PlanID = &planID
		item.PlanName = plan.Name
		item.BaseRate = pricing.BaseRate
		item.BonusRateAdd = pricing.BonusRateAdd
		item.EffectiveRate = pricing.EffectiveRate
		item.Commission = pricing.Commission
		for _, rule := range pricing.AppliedRules {
			item.AppliedBonusRules = append(item.AppliedBonusRules, rule.Name)
		}
		totalCommission += pricing.Commission
		lineItems = append(lineItems, item)
	}

	attainment := engine.AttainmentPct(totalClosedWon, tr.Target)

	statement := &commdomain.QuarterStatement{
		AEProfileID:          profile.ID.String(),
		AEName:               profile.FullName,
		View:                 string(p.view),
		PeriodLabel:          p.label,
		Year:                 p.year,
		Quarter:              p.quarter,
		Currency:             profile.PayoutCurrency,
		CurrencyRate:         converter.Rate(profile.PayoutCurrency),
		Target:               tr.Target,
		TargetLabel:          tr.Label,
		AdjustedAnnualTarget: tr.AdjustedAnnualTarget,
		IsRampQuarter:        tr.IsRampQuarter,
		TotalClosedWonAmount: totalClosedWon,
		AttainmentPct:        attainment,
		LineItems:            lineItems,
	}

	// Accelerators come from the AE's assigned plan; without one there is no
	// tier schedule to price the over-target amount against. The bonus is
	// annual: tier selection and the over-target amount always use full-year
	// closings against the adjusted annual target, whichever view the
	// statement window covers.
	acceleratorBonus := 0.0
	if plan := s.assignedPlan(profile, plans); plan != nil && len(plan.PerformanceAccelerators) > 0 {
		annualClosedWon := totalClosedWon
		if p.view != target.ViewYTD {
			annualClosedWon, err = s.annualClosedWon(ctx, profile, p.from.Year())
			if err != nil {
				return nil, err
			}
		}
		annualAttainment := engine.AttainmentPct(annualClosedWon, tr.AdjustedAnnualTarget)

		tier := engine.SelectTier(plan.PerformanceAccelerators, annualAttainment)
		baseRate := numeric.Normalize(plan.BaseCommissionRate)
		acceleratorBonus = engine.AcceleratorBonus(tier, baseRate, annualAttainment, annualClosedWon, tr.AdjustedAnnualTarget)
		if tier != nil {
			outcome := &commdomain.AcceleratorOutcome{
				TierID:           tier.ID.String(),
				MinAttainment:    numeric.Normalize(tier.MinAttainment),
				CommissionRate:   numeric.Normalize(tier.CommissionRate),
				AmountOverTarget: annualClosedWon - tr.AdjustedAnnualTarget,
				Bonus:            acceleratorBonus,
			}
			if tier.MaxAttainment != nil {
				max := numeric.Normalize(*tier.MaxAttainment)
				outcome.MaxAttainment = &max
			}
			if outcome.AmountOverTarget < 0 {
				outcome.AmountOverTarget = 0
			}
			statement.Accelerator = outcome
		}
	}

	// Payout figures are converted to the AE's payout currency; deal amounts
	// and targets stay in USD.
	statement.TotalCommission = converter.Convert(totalCommission, profile.PayoutCurrency)
	statement.AcceleratorBonus = converter.Convert(acceleratorBonus, profile.PayoutCurrency)
	statement.TotalPayout = statement.TotalCommission + statement.AcceleratorBonus
	return statement, nil
}

// annualClosedWon sums won-deal amounts across the statement's full year.
func (s *Service) annualClosedWon(ctx context.Context, profile *aedomain.AEProfile, year int) (float64, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	deals, err := s.dealRepo.List(ctx, s.db, dealdomain.ListFilter{
		AEProfileID: &profile.ID,
		WonOnly:     true,
		From:        &from,
		To:          &to,
	})
	if err != nil {
		return 0, err
	}

	var total float64
	for i := range deals {
		total += numeric.Normalize(deals[i].Amount)
	}
	return total, nil
}

func (s *Service) assignedPlan(profile *aedomain.AEProfile, plans []plandomain.CommissionPlan) *plandomain.CommissionPlan {
	if profile.CommissionPlanID == nil {
		return nil
	}
	for i := range plans {
		if plans[i].ID == *profile.CommissionPlanID {
			return &plans[i]
		}
	}
	return nil
}

func (s *Service) Reporting(ctx context.Context, view string, year, quarter int) ([]commdomain.ReportingRow, error) {
	p, err := s.resolvePeriod(ctx, view, year, quarter)
	if err != nil {
		return nil, err
	}

	profiles, err := s.profileRepo.ListActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	plans, err := s.planRepo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	converter, err := s.fx.ConverterForYear(ctx, p.year)
	if err != nil {
		return nil, err
	}

	rows := make([]commdomain.ReportingRow, 0, len(profiles))
	for i := range profiles {
		profile := &profiles[i]
		statement, err := s.buildStatement(ctx, profile, p, plans, converter)
		if err != nil {
			return nil, err
		}
		rows = append(rows, commdomain.ReportingRow{
			AEProfileID:          statement.AEProfileID,
			AEName:               statement.AEName,
			Email:                profile.Email,
			Currency:             statement.Currency,
			Target:               statement.Target,
			TotalClosedWonAmount: statement.TotalClosedWonAmount,
			AttainmentPct:        statement.AttainmentPct,
			TotalCommission:      statement.TotalCommission,
			AcceleratorBonus:     statement.AcceleratorBonus,
			TotalPayout:          statement.TotalPayout,
			DealCount:            len(statement.LineItems),
		})
	}
	return rows, nil
}

func (s *Service) Leaderboard(ctx context.Context, view string, year, quarter int) ([]commdomain.LeaderboardRow, error) {
	reporting, err := s.Reporting(ctx, view, year, quarter)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(reporting, func(i, j int) bool {
		return reporting[i].TotalClosedWonAmount > reporting[j].TotalClosedWonAmount
	})

	rows := make([]commdomain.LeaderboardRow, 0, len(reporting))
	for i, r := range reporting {
		rows = append(rows, commdomain.LeaderboardRow{
			Rank:                 i + 1,
			AEProfileID:          r.AEProfileID,
			AEName:               r.AEName,
			TotalClosedWonAmount: r.TotalClosedWonAmount,
			AttainmentPct:        r.AttainmentPct,
			DealCount:            r.DealCount,
		})
	}
	return rows, nil
}
