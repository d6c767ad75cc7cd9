// Package domain defines persisted deals ingested from the external CRM.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrDealNotFound = errors.New("deal not found")
)

// Deal rows are keyed internally by snowflake but upserted by the stable
// external record id. AppliedBonusRuleIDs is the bonus allow-list: mutated
// only by the toggle endpoint and the sync's monotonic attribute pass.
type Deal struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	AttioRecordID string       `json:"attio_record_id" gorm:"not null;uniqueIndex"`

	DealName             string          `json:"deal_name" gorm:"not null"`
	AccountName          *string         `json:"account_name"`
	Amount               decimal.Decimal `json:"amount" gorm:"type:decimal(16,2);not null"`
	CommissionableAmount decimal.Decimal `json:"commissionable_amount" gorm:"type:decimal(16,2);not null"`
	CloseDate            time.Time       `json:"close_date" gorm:"not null;index"`
	Status               string          `json:"status" gorm:"not null"`

	AEProfileID                 *snowflake.ID `json:"ae_profile_id" gorm:"index"`
	AttioOwnerWorkspaceMemberID *string       `json:"attio_owner_workspace_member_id" gorm:"index"`

	AppliedBonusRuleIDs datatypes.JSONSlice[string] `json:"applied_bonus_rule_ids"`
	RevOpsApproved      bool                        `json:"rev_ops_approved" gorm:"not null;default:false"`
	RawAttioPayload     datatypes.JSON              `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Deal) TableName() string { return "deals" }

// HasBonusRule reports membership of a rule id in the allow-list.
func (d *Deal) HasBonusRule(ruleID snowflake.ID) bool {
	want := ruleID.String()
	for _, id := range d.AppliedBonusRuleIDs {
		if id == want {
			return true
		}
	}
	return false
}

type ListFilter struct {
	AEProfileID *snowflake.ID
	WonOnly     bool
	From        *time.Time
	To          *time.Time
	Limit       int
}

type Repository interface {
	UpsertByRecordID(ctx context.Context, db *gorm.DB, deal *Deal) (changed bool, err error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Deal, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Deal, error)
	UpdateAppliedBonusRules(ctx context.Context, db *gorm.DB, id snowflake.ID, ruleIDs []string) error
	// ReassignOwner bulk-moves deals owned by memberID to profileID, skipping
	// rows already assigned there. Returns the number of rows touched.
	ReassignOwner(ctx context.Context, db *gorm.DB, memberID string, profileID snowflake.ID) (int64, error)
	DeleteNonWon(ctx context.Context, db *gorm.DB) (int64, error)
}

type Service interface {
	Get(ctx context.Context, id string) (*Deal, error)
	List(ctx context.Context, filter ListFilter) ([]Deal, error)
	// ToggleBonusRule adds or removes one rule id on the deal's allow-list.
	ToggleBonusRule(ctx context.Context, dealID, bonusRuleID string, enabled bool) (*Deal, error)
}
