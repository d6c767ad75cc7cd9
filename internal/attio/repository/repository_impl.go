package repository

import (
	"context"
	"errors"

	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() attiodomain.Repository {
	return &repository{}
}

func (r *repository) FindMemberByID(ctx context.Context, db *gorm.DB, memberID string) (*attiodomain.AttioWorkspaceMember, error) {
	var member attiodomain.AttioWorkspaceMember
	err := db.WithContext(ctx).First(&member, "member_id = ?", memberID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindMemberByEmail(ctx context.Context, db *gorm.DB, email string) (*attiodomain.AttioWorkspaceMember, error) {
	var member attiodomain.AttioWorkspaceMember
	err := db.WithContext(ctx).First(&member, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *repository) ListMembers(ctx context.Context, db *gorm.DB) ([]attiodomain.AttioWorkspaceMember, error) {
	var members []attiodomain.AttioWorkspaceMember
	err := db.WithContext(ctx).Order("email ASC").Find(&members).Error
	return members, err
}

func (r *repository) Save(ctx context.Context, db *gorm.DB, member *attiodomain.AttioWorkspaceMember) error {
	return db.WithContext(ctx).Save(member).Error
}

func (r *repository) DeleteByMemberID(ctx context.Context, db *gorm.DB, memberID string) error {
	return db.WithContext(ctx).Delete(&attiodomain.AttioWorkspaceMember{}, "member_id = ?", memberID).Error
}
