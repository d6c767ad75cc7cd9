package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() aedomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, profile *aedomain.AEProfile) error {
	return db.WithContext(ctx).Create(profile).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*aedomain.AEProfile, error) {
	var profile aedomain.AEProfile
	err := db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repository) ListActive(ctx context.Context, db *gorm.DB) ([]aedomain.AEProfile, error) {
	var profiles []aedomain.AEProfile
	err := db.WithContext(ctx).
		Where("status = ?", aedomain.StatusActive).
		Order("full_name ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, profile *aedomain.AEProfile) error {
	return db.WithContext(ctx).Save(profile).Error
}

func (r *repository) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&aedomain.AEProfile{}, "id = ?", id).Error
}

func (r *repository) LinkMember(ctx context.Context, db *gorm.DB, profileID snowflake.ID, memberID *string) error {
	return db.WithContext(ctx).Model(&aedomain.AEProfile{}).
		Where("id = ?", profileID).
		Update("attio_workspace_member_id", memberID).Error
}

func (r *repository) RepointMember(ctx context.Context, db *gorm.DB, oldID, newID string) (int64, error) {
	res := db.WithContext(ctx).Model(&aedomain.AEProfile{}).
		Where("attio_workspace_member_id = ?", oldID).
		Update("attio_workspace_member_id", newID)
	return res.RowsAffected, res.Error
}
