// Package domain defines account-executive profiles and their linkage to
// external CRM workspace members.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound = errors.New("ae profile not found")
	ErrInvalidProfile  = errors.New("invalid ae profile")
	// ErrMemberAlreadyLinked surfaces the unique constraint on the external
	// member linkage: at most one profile may hold a given member id.
	ErrMemberAlreadyLinked = errors.New("workspace member already linked to another profile")
)

type ProfileStatus string

const (
	StatusActive   ProfileStatus = "ACTIVE"
	StatusInactive ProfileStatus = "INACTIVE"
)

type AEProfile struct {
	ID       snowflake.ID  `json:"id" gorm:"primaryKey"`
	FullName string        `json:"full_name" gorm:"not null"`
	Email    string        `json:"email" gorm:"not null;uniqueIndex"`
	Status   ProfileStatus `json:"status" gorm:"not null;default:'ACTIVE';index"`

	AnnualTarget     decimal.Decimal `json:"annual_target" gorm:"type:decimal(16,2);not null"`
	StartDate        *time.Time      `json:"start_date"`
	CommissionPlanID *snowflake.ID   `json:"commission_plan_id" gorm:"index"`
	PayoutCurrency   string          `json:"payout_currency" gorm:"not null;default:'USD'"`

	JobRole   *string `json:"job_role"`
	Segment   *string `json:"segment"`
	Territory *string `json:"territory"`

	// External identity: unique so ownership mapping stays one-to-one.
	AttioWorkspaceMemberID *string `json:"attio_workspace_member_id" gorm:"uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AEProfile) TableName() string { return "ae_profiles" }

type CreateRequest struct {
	FullName         string     `json:"full_name"`
	Email            string     `json:"email"`
	AnnualTarget     float64    `json:"annual_target"`
	StartDate        *time.Time `json:"start_date"`
	CommissionPlanID *string    `json:"commission_plan_id"`
	PayoutCurrency   string     `json:"payout_currency"`
	JobRole          *string    `json:"job_role"`
	Segment          *string    `json:"segment"`
	Territory        *string    `json:"territory"`
}

type UpdateRequest struct {
	FullName         *string    `json:"full_name"`
	AnnualTarget     *float64   `json:"annual_target"`
	StartDate        *time.Time `json:"start_date"`
	CommissionPlanID *string    `json:"commission_plan_id"`
	PayoutCurrency   *string    `json:"payout_currency"`
	JobRole          *string    `json:"job_role"`
	Segment          *string    `json:"segment"`
	Territory        *string    `json:"territory"`
	Status           *string    `json:"status"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, profile *AEProfile) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AEProfile, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]AEProfile, error)
	Update(ctx context.Context, db *gorm.DB, profile *AEProfile) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// LinkMember sets the external member id; gorm.ErrDuplicatedKey maps to
	// ErrMemberAlreadyLinked at the service layer.
	LinkMember(ctx context.Context, db *gorm.DB, profileID snowflake.ID, memberID *string) error
	// RepointMember moves every linkage from oldID to newID (identity repair).
	RepointMember(ctx context.Context, db *gorm.DB, oldID, newID string) (int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*AEProfile, error)
	Get(ctx context.Context, id string) (*AEProfile, error)
	ListActive(ctx context.Context) ([]AEProfile, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*AEProfile, error)
	Delete(ctx context.Context, id string) error
	LinkMember(ctx context.Context, id string, memberID *string) (*AEProfile, error)
}
