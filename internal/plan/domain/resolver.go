package domain

import (
	"sort"
	"time"
)

// ResolveForCloseDate picks the plan whose effective window contains the
// close date. Editors are expected to keep windows disjoint, but overlap is
// not an error here: the plan with the latest start date wins, so a
// newly-introduced plan deterministically shadows its predecessor.
func ResolveForCloseDate(plans []CommissionPlan, closeDate time.Time) (*CommissionPlan, error) {
	active := make([]CommissionPlan, 0, len(plans))
	for _, p := range plans {
		if closeDate.Before(p.EffectiveStartDate) {
			continue
		}
		if p.EffectiveEndDate != nil && closeDate.After(*p.EffectiveEndDate) {
			continue
		}
		active = append(active, p)
	}
	if len(active) == 0 {
		return nil, ErrNoActivePlan
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].EffectiveStartDate.After(active[j].EffectiveStartDate)
	})
	return &active[0], nil
}
