// Package engine holds the pure commission math: bonus rule evaluation,
// accelerator tier selection, and per-deal pricing. Everything here is
// deterministic and free of I/O so the numbers are reproducible.
package engine

import (
	"sort"
	"time"

	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	"github.com/paylinelabs/payline/internal/numeric"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
)

// EligibleBonusRules filters a plan's rules down to those that contribute to
// a deal: enabled, present on the deal's allow-list, and inside the rule's
// optional effective window at the deal close date.
func EligibleBonusRules(rules []plandomain.BonusRule, deal *dealdomain.Deal) []plandomain.BonusRule {
	var eligible []plandomain.BonusRule
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !deal.HasBonusRule(rule.ID) {
			continue
		}
		if !withinWindow(rule.EffectiveStartDate, rule.EffectiveEndDate, deal.CloseDate) {
			continue
		}
		eligible = append(eligible, rule)
	}
	return eligible
}

func withinWindow(start, end *time.Time, at time.Time) bool {
	if start != nil && at.Before(*start) {
		return false
	}
	if end != nil && at.After(*end) {
		return false
	}
	return true
}

// SelectTier picks the accelerator tier for an attainment percentage. Tiers
// are scanned in ascending min-attainment order and the last matching tier
// wins, so a higher overlapping tier overrides a lower one. When nothing
// matches, the lowest tier is the fallback. An empty list selects no tier.
func SelectTier(tiers []plandomain.PerformanceAccelerator, attainmentPct float64) *plandomain.PerformanceAccelerator {
	if len(tiers) == 0 {
		return nil
	}

	ordered := make([]plandomain.PerformanceAccelerator, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinAttainment.LessThan(ordered[j].MinAttainment)
	})

	var selected *plandomain.PerformanceAccelerator
	for i := range ordered {
		tier := &ordered[i]
		min := numeric.Normalize(tier.MinAttainment)
		if attainmentPct < min {
			continue
		}
		if tier.MaxAttainment != nil && attainmentPct > numeric.Normalize(*tier.MaxAttainment) {
			continue
		}
		selected = tier
	}
	if selected == nil {
		selected = &ordered[0]
	}
	return selected
}

// AcceleratorBonus pays the tier's uplift over the base rate on the amount
// closed above target. It pays nothing below 100% attainment, when the tier
// does not beat the base rate, or when no target is set.
func AcceleratorBonus(tier *plandomain.PerformanceAccelerator, baseRate, attainmentPct, totalClosedWon, adjustedAnnualTarget float64) float64 {
	if tier == nil || attainmentPct < 100 || adjustedAnnualTarget <= 0 {
		return 0
	}
	tierRate := numeric.Normalize(tier.CommissionRate)
	if tierRate <= baseRate {
		return 0
	}
	over := totalClosedWon - adjustedAnnualTarget
	if over <= 0 {
		return 0
	}
	return over * (tierRate - baseRate)
}

// DealPricing is the resolved rate breakdown for one deal.
type DealPricing struct {
	BaseRate      float64
	BonusRateAdd  float64
	EffectiveRate float64
	Commission    float64
	AppliedRules  []plandomain.BonusRule
}

// PriceDeal computes a deal's commission under a plan: base rate plus the
// rate additions of its eligible bonus rules, applied to the commissionable
// amount.
func PriceDeal(deal *dealdomain.Deal, plan *plandomain.CommissionPlan) DealPricing {
	baseRate := numeric.Normalize(plan.BaseCommissionRate)
	applied := EligibleBonusRules(plan.BonusRules, deal)

	bonusAdd := 0.0
	for _, rule := range applied {
		bonusAdd += numeric.Normalize(rule.RateAdd)
	}

	effective := baseRate + bonusAdd
	return DealPricing{
		BaseRate:      baseRate,
		BonusRateAdd:  bonusAdd,
		EffectiveRate: effective,
		Commission:    numeric.Normalize(deal.CommissionableAmount) * effective,
		AppliedRules:  applied,
	}
}

// AttainmentPct is total closed-won over target as a percentage; zero when
// no target is set.
func AttainmentPct(totalClosedWon, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return totalClosedWon / target * 100
}
