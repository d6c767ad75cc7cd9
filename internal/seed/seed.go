// Package seed provisions a demo dataset: one commission plan with bonus
// rules and accelerator tiers, a handful of AE profiles, FX rates, and won
// deals shaped like synced CRM records. Seeding is idempotent.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	fxdomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const demoPlanName = "Standard AE Plan"

// EnsureDemoData seeds the demo dataset once; reruns are no-ops keyed on
// the demo plan's presence.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing plandomain.CommissionPlan
		err := tx.First(&existing, "name = ?", demoPlanName).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		plan, multiYearRule, err := seedPlan(tx, node)
		if err != nil {
			return err
		}
		if err := seedFxRates(tx, node); err != nil {
			return err
		}
		profiles, err := seedProfiles(tx, node, plan.ID)
		if err != nil {
			return err
		}
		return seedDeals(tx, node, profiles, multiYearRule)
	})
}

func seedPlan(tx *gorm.DB, node *snowflake.Node) (*plandomain.CommissionPlan, *plandomain.BonusRule, error) {
	now := time.Now().UTC()
	multiYearAttr := "multi_year_commitment"
	max := decimal.NewFromFloat(99.999)

	plan := &plandomain.CommissionPlan{
		ID:                 node.Generate(),
		Name:               demoPlanName,
		BaseCommissionRate: decimal.NewFromFloat(0.10),
		EffectiveStartDate: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC),
		BonusRules: []plandomain.BonusRule{
			{
				ID:                 node.Generate(),
				Name:               "Multi-Year Commitment",
				RateAdd:            decimal.NewFromFloat(0.02),
				Enabled:            true,
				AttioAttributeName: &multiYearAttr,
			},
			{
				ID:      node.Generate(),
				Name:    "New Logo",
				RateAdd: decimal.NewFromFloat(0.01),
				Enabled: true,
			},
		},
		PerformanceAccelerators: []plandomain.PerformanceAccelerator{
			{
				ID:             node.Generate(),
				MinAttainment:  decimal.Zero,
				MaxAttainment:  &max,
				CommissionRate: decimal.NewFromFloat(0.10),
			},
			{
				ID:             node.Generate(),
				MinAttainment:  decimal.NewFromInt(100),
				CommissionRate: decimal.NewFromFloat(0.15),
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range plan.BonusRules {
		plan.BonusRules[i].CommissionPlanID = plan.ID
	}
	for i := range plan.PerformanceAccelerators {
		plan.PerformanceAccelerators[i].CommissionPlanID = plan.ID
	}

	if err := tx.Create(plan).Error; err != nil {
		return nil, nil, err
	}
	return plan, &plan.BonusRules[0], nil
}

func seedFxRates(tx *gorm.DB, node *snowflake.Node) error {
	now := time.Now().UTC()
	rates := []fxdomain.FxRate{
		{ID: node.Generate(), CurrencyCode: "EUR", Year: now.Year(), Rate: decimal.NewFromFloat(0.92)},
		{ID: node.Generate(), CurrencyCode: "GBP", Year: now.Year(), Rate: decimal.NewFromFloat(0.79)},
	}
	for i := range rates {
		rates[i].CreatedAt = now
		rates[i].UpdatedAt = now
		if err := tx.Create(&rates[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedProfiles(tx *gorm.DB, node *snowflake.Node, planID snowflake.ID) ([]aedomain.AEProfile, error) {
	now := time.Now().UTC()
	hireDate := time.Date(now.Year(), 4, 1, 0, 0, 0, 0, time.UTC)
	segment := "Mid-Market"

	profiles := []aedomain.AEProfile{
		{
			ID:               node.Generate(),
			FullName:         "Jordan Reyes",
			Email:            "jordan.reyes@example.com",
			Status:           aedomain.StatusActive,
			AnnualTarget:     decimal.NewFromInt(1_000_000),
			CommissionPlanID: &planID,
			PayoutCurrency:   "USD",
			Segment:          &segment,
		},
		{
			ID:               node.Generate(),
			FullName:         "Mia Chen",
			Email:            "mia.chen@example.com",
			Status:           aedomain.StatusActive,
			AnnualTarget:     decimal.NewFromInt(800_000),
			StartDate:        &hireDate,
			CommissionPlanID: &planID,
			PayoutCurrency:   "EUR",
		},
	}
	for i := range profiles {
		memberID := uuid.NewString()
		profiles[i].AttioWorkspaceMemberID = &memberID
		profiles[i].CreatedAt = now
		profiles[i].UpdatedAt = now
		if err := tx.Create(&profiles[i]).Error; err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

func seedDeals(tx *gorm.DB, node *snowflake.Node, profiles []aedomain.AEProfile, multiYearRule *plandomain.BonusRule) error {
	now := time.Now().UTC()

	for i, profile := range profiles {
		for j := 0; j < 3; j++ {
			amount := float64(50_000 * (j + 1))
			closeDate := time.Date(now.Year(), time.Month(2+3*j), 15, 0, 0, 0, 0, time.UTC)
			recordID := uuid.NewString()
			name := fmt.Sprintf("Demo Deal %d-%d", i+1, j+1)
			multiYear := j == 2

			values := map[string]any{
				"name":          []any{map[string]any{"value": name}},
				"amount":        []any{map[string]any{"currency_value": amount}},
				"won_loss_date": []any{map[string]any{"value": closeDate.Format("2006-01-02")}},
				"stage":         []any{map[string]any{"status": map[string]any{"title": "Closed Won 🎉"}}},
			}
			if multiYear {
				values["multi_year_commitment"] = []any{map[string]any{"value": true}}
			}
			raw, err := json.Marshal(map[string]any{
				"id":     map[string]any{"record_id": recordID},
				"values": values,
			})
			if err != nil {
				return err
			}

			deal := &dealdomain.Deal{
				ID:                          node.Generate(),
				AttioRecordID:               recordID,
				DealName:                    name,
				Amount:                      decimal.NewFromFloat(amount),
				CommissionableAmount:        decimal.NewFromFloat(amount),
				CloseDate:                   closeDate,
				Status:                      "Won",
				AEProfileID:                 &profile.ID,
				AttioOwnerWorkspaceMemberID: profile.AttioWorkspaceMemberID,
				RawAttioPayload:             datatypes.JSON(raw),
				CreatedAt:                   now,
				UpdatedAt:                   now,
			}
			// The largest deal per AE carries the multi-year commitment
			// attribute in its payload and the matching rule on its
			// allow-list, the shape a sync run would have produced.
			if multiYear && multiYearRule != nil {
				deal.AppliedBonusRuleIDs = datatypes.JSONSlice[string]{multiYearRule.ID.String()}
			}
			if err := tx.Create(deal).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
