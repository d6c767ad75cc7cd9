// Package domain defines the CRM reconciliation types: mirrored workspace
// members, tolerant parsed records, and the per-run sync result.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	// ErrMissingAPIKey short-circuits a sync before any network call.
	ErrMissingAPIKey = errors.New("attio api key is not configured")
	// ErrSyncInProgress reports a held run lock.
	ErrSyncInProgress = errors.New("a sync run is already in progress")
)

// AttioWorkspaceMember mirrors one CRM workspace member. MemberID is the
// stable external id; Email is the identity-repair key.
type AttioWorkspaceMember struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	MemberID  string       `json:"member_id" gorm:"not null;uniqueIndex"`
	Email     string       `json:"email" gorm:"not null;index"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AttioWorkspaceMember) TableName() string { return "attio_workspace_members" }

// ParsedMember is the normalized shape of one workspace member payload.
// A missing MemberID means the record is skipped, never the batch.
type ParsedMember struct {
	MemberID  string
	Email     string
	FirstName *string
	LastName  *string
}

// ParsedDeal is the normalized shape of one deal payload. Raw keeps the
// original record for attribute lookups and storage.
type ParsedDeal struct {
	RecordID      string
	Name          string
	AccountName   *string
	Amount        float64
	CloseDate     *time.Time
	Status        string
	OwnerMemberID *string
	Raw           map[string]any
}

// IsWon reports whether the normalized status counts as closed-won.
func (d *ParsedDeal) IsWon() bool {
	return IsWonStatus(d.Status)
}

// SyncResult is the accounting for one reconciliation run.
type SyncResult struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	MembersFetched  int `json:"members_fetched"`
	MembersUpserted int `json:"members_upserted"`
	IdentityRepairs int `json:"identity_repairs"`
	Conflicts       int `json:"conflicts"`

	DealsFetched    int `json:"deals_fetched"`
	DealsUpserted   int `json:"deals_upserted"`
	DealsSkipped    int `json:"deals_skipped"`
	DealsPurged     int `json:"deals_purged"`
	DealsReassigned int `json:"deals_reassigned"`

	ProfilesLinked    int `json:"profiles_linked"`
	BonusRulesApplied int `json:"bonus_rules_applied"`

	Errors []string `json:"errors,omitempty"`
}

// Client is the CRM API surface the sync consumes. Records come back as raw
// maps; the tolerant parser owns shape handling.
type Client interface {
	ListWorkspaceMembers(ctx context.Context) ([]map[string]any, error)
	QueryDeals(ctx context.Context) ([]map[string]any, error)
}

type Repository interface {
	FindMemberByID(ctx context.Context, db *gorm.DB, memberID string) (*AttioWorkspaceMember, error)
	FindMemberByEmail(ctx context.Context, db *gorm.DB, email string) (*AttioWorkspaceMember, error)
	ListMembers(ctx context.Context, db *gorm.DB) ([]AttioWorkspaceMember, error)
	Save(ctx context.Context, db *gorm.DB, member *AttioWorkspaceMember) error
	DeleteByMemberID(ctx context.Context, db *gorm.DB, memberID string) error
}

type Service interface {
	// Run executes one full reconciliation. Concurrent runs are rejected
	// with ErrSyncInProgress while the run lock is held.
	Run(ctx context.Context, actorUserID *string) (*SyncResult, error)
	// LastResult returns the cached result of the most recent run, or nil
	// when none is available.
	LastResult(ctx context.Context) (*SyncResult, error)
}
