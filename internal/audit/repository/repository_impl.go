package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/paylinelabs/payline/internal/audit/domain"
	"github.com/paylinelabs/payline/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

type repository struct{}

func Provide() auditdomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.AuditLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

// List pages newest-first with a keyset cursor on (created_at, id); offset
// pagination drifts when new entries land between requests.
func (r *repository) List(ctx context.Context, db *gorm.DB, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, *pagination.PageInfo, error) {
	pageSize := filter.Page.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	query := db.WithContext(ctx).Model(&auditdomain.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(filter.Page.PageToken)
		if err != nil {
			return nil, nil, err
		}
		after, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, nil, err
		}
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			after, after, id,
		)
	}

	var entries []auditdomain.AuditLog
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pageSize + 1).
		Find(&entries).Error
	if err != nil {
		return nil, nil, err
	}

	info := pagination.BuildCursorPageInfo(entries, pageSize, func(e auditdomain.AuditLog) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        e.ID.String(),
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})
	if len(entries) > pageSize {
		entries = entries[:pageSize]
	}
	return entries, info, nil
}

func (r *repository) DeleteOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&auditdomain.AuditLog{})
	return res.RowsAffected, res.Error
}
