// Package domain holds the annual FX rate table used to convert USD
// commission totals into an AE's payout currency.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidRate = errors.New("invalid fx rate")

// FxRate is local-currency units per 1 USD for a calendar year.
type FxRate struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	CurrencyCode string          `json:"currency_code" gorm:"not null;uniqueIndex:idx_fx_currency_year"`
	Year         int             `json:"year" gorm:"not null;uniqueIndex:idx_fx_currency_year"`
	Rate         decimal.Decimal `json:"rate" gorm:"type:decimal(16,8);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FxRate) TableName() string { return "fx_rates" }

type UpsertRequest struct {
	CurrencyCode string  `json:"currency_code"`
	Year         int     `json:"year"`
	Rate         float64 `json:"rate"`
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, rate *FxRate) error
	ListByYear(ctx context.Context, db *gorm.DB, year int) ([]FxRate, error)
	List(ctx context.Context, db *gorm.DB) ([]FxRate, error)
}

type Service interface {
	Upsert(ctx context.Context, req UpsertRequest) (*FxRate, error)
	List(ctx context.Context) ([]FxRate, error)
	ConverterForYear(ctx context.Context, year int) (Converter, error)
}

// Converter applies the annual rate table to a USD amount. A missing rate
// degrades to identity conversion so a statement still renders.
type Converter interface {
	Convert(amountUSD float64, currencyCode string) float64
	Rate(currencyCode string) float64
}
