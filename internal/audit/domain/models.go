// Package domain defines the append-only audit trail.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paylinelabs/payline/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditLog struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	ActorUserID *string        `json:"actor_user_id" gorm:"index"`
	Action      string         `json:"action" gorm:"not null;index"`
	EntityType  string         `json:"entity_type" gorm:"not null"`
	EntityID    string         `json:"entity_id" gorm:"not null;index"`
	Details     datatypes.JSON `json:"details"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action string
	Page   pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, *pagination.PageInfo, error)
	DeleteOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

type Service interface {
	// Log records one entry; details may be any JSON-marshalable value.
	Log(ctx context.Context, actorUserID *string, action, entityType, entityID string, details any) error
	List(ctx context.Context, filter ListFilter) ([]AuditLog, *pagination.PageInfo, error)
	// PurgeExpired enforces the configured retention window.
	PurgeExpired(ctx context.Context) (int64, error)
}
