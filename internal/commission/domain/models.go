// Package domain defines the computed commission views: per-deal line items,
// quarter statements, reporting rows, and the leaderboard.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProfileNotFound = errors.New("ae profile not found")
	ErrInvalidPeriod   = errors.New("invalid reporting period")
)

// DealLineItem is one won deal priced under its resolved plan.
type DealLineItem struct {
	DealID               string     `json:"deal_id"`
	DealName             string     `json:"deal_name"`
	AccountName          *string    `json:"account_name,omitempty"`
	CloseDate            time.Time  `json:"close_date"`
	Amount               float64    `json:"amount"`
	CommissionableAmount float64    `json:"commissionable_amount"`
	PlanID               *string    `json:"plan_id,omitempty"`
	PlanName             string     `json:"plan_name"`
	BaseRate             float64    `json:"base_rate"`
	BonusRateAdd         float64    `json:"bonus_rate_add"`
	EffectiveRate        float64    `json:"effective_rate"`
	Commission           float64    `json:"commission"`
	AppliedBonusRules    []string   `json:"applied_bonus_rules,omitempty"`
	PlanError            string     `json:"plan_error,omitempty"`
}

// AcceleratorOutcome describes the tier applied to a statement, if any.
type AcceleratorOutcome struct {
	TierID           string   `json:"tier_id"`
	MinAttainment    float64  `json:"min_attainment"`
	MaxAttainment    *float64 `json:"max_attainment,omitempty"`
	CommissionRate   float64  `json:"commission_rate"`
	AmountOverTarget float64  `json:"amount_over_target"`
	Bonus            float64  `json:"bonus"`
}

// QuarterStatement aggregates an AE's won deals over a reporting window.
type QuarterStatement struct {
	AEProfileID   string  `json:"ae_profile_id"`
	AEName        string  `json:"ae_name"`
	View          string  `json:"view"`
	PeriodLabel   string  `json:"period_label"`
	Year          int     `json:"year"`
	Quarter       int     `json:"quarter,omitempty"`
	Currency      string  `json:"currency"`
	CurrencyRate  float64 `json:"currency_rate"`

	Target               float64 `json:"target"`
	TargetLabel          string  `json:"target_label"`
	AdjustedAnnualTarget float64 `json:"adjusted_annual_target"`
	IsRampQuarter        bool    `json:"is_ramp_quarter"`

	TotalClosedWonAmount float64 `json:"total_closed_won_amount"`
	AttainmentPct        float64 `json:"attainment_pct"`
	TotalCommission      float64 `json:"total_commission"`
	AcceleratorBonus     float64 `json:"accelerator_bonus"`
	TotalPayout          float64 `json:"total_payout"`

	Accelerator *AcceleratorOutcome `json:"accelerator,omitempty"`
	LineItems   []DealLineItem      `json:"line_items"`
}

// ReportingRow is the flat admin view: one row per active AE for a period.
type ReportingRow struct {
	AEProfileID          string  `json:"ae_profile_id"`
	AEName               string  `json:"ae_name"`
	Email                string  `json:"email"`
	Currency             string  `json:"currency"`
	Target               float64 `json:"target"`
	TotalClosedWonAmount float64 `json:"total_closed_won_amount"`
	AttainmentPct        float64 `json:"attainment_pct"`
	TotalCommission      float64 `json:"total_commission"`
	AcceleratorBonus     float64 `json:"accelerator_bonus"`
	TotalPayout          float64 `json:"total_payout"`
	DealCount            int     `json:"deal_count"`
}

// LeaderboardRow ranks AEs by closed-won amount in a window.
type LeaderboardRow struct {
	Rank                 int     `json:"rank"`
	AEProfileID          string  `json:"ae_profile_id"`
	AEName               string  `json:"ae_name"`
	TotalClosedWonAmount float64 `json:"total_closed_won_amount"`
	AttainmentPct        float64 `json:"attainment_pct"`
	DealCount            int     `json:"deal_count"`
}

type StatementRequest struct {
	AEProfileID string
	View        string
	// Zero values mean "now" per the service clock.
	Year    int
	Quarter int
}

type Service interface {
	Statement(ctx context.Context, req StatementRequest) (*QuarterStatement, error)
	Reporting(ctx context.Context, view string, year, quarter int) ([]ReportingRow, error)
	Leaderboard(ctx context.Context, view string, year, quarter int) ([]LeaderboardRow, error)
}
