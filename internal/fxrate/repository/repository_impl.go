package repository

import (
	"context"

	fxratedomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct{}

func Provide() fxratedomain.Repository {
	return &repository{}
}

func (r *repository) Upsert(ctx context.Context, db *gorm.DB, rate *fxratedomain.FxRate) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "currency_code"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_at"}),
	}).Create(rate).Error
}

func (r *repository) ListByYear(ctx context.Context, db *gorm.DB, year int) ([]fxratedomain.FxRate, error) {
	var rates []fxratedomain.FxRate
	err := db.WithContext(ctx).Where("year = ?", year).Find(&rates).Error
	return rates, err
}

func (r *repository) List(ctx context.Context, db *gorm.DB) ([]fxratedomain.FxRate, error) {
	var rates []fxratedomain.FxRate
	err := db.WithContext(ctx).Order("year DESC, currency_code ASC").Find(&rates).Error
	return rates, err
}
