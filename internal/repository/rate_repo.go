package repository

import (
	"context"
	"time"

	"longan-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RateRepository interface {
	Upsert(ctx context.Context, rate *model.CurrencyRate) error
	FindLatest(ctx context.Context, currency string) (*model.CurrencyRate, error)
	FindOn(ctx context.Context, currency string, date time.Time) (*model.CurrencyRate, error)
	List(ctx context.Context, currency string, page, limit int) ([]model.CurrencyRate, int64, error)
}

type rateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) RateRepository {
	return &rateRepository{db: db}
}

// Upsert stores a rate for its effective date, overwriting a re-published
// value for the same currency and day.
func (r *rateRepository) Upsert(ctx context.Context, rate *model.CurrencyRate) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "currency"}, {Name: "effective_on"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source"}),
	}).Create(rate).Error
}

func (r *rateRepository) FindLatest(ctx context.Context, currency string) (*model.CurrencyRate, error) {
	var rate model.CurrencyRate
	if err := GetDB(ctx, r.db).
		Where("currency = ?", currency).
		Order("effective_on DESC").
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

// FindOn returns the rate effective on a date: the most recent record not
// later than the date.
func (r *rateRepository) FindOn(ctx context.Context, currency string, date time.Time) (*model.CurrencyRate, error) {
	var rate model.CurrencyRate
	if err := GetDB(ctx, r.db).
		Where("currency = ? AND effective_on <= ?", currency, date).
		Order("effective_on DESC").
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *rateRepository) List(ctx context.Context, currency string, page, limit int) ([]model.CurrencyRate, int64, error) {
	var rates []model.CurrencyRate
	var total int64

	db := GetDB(ctx, r.db).Model(&model.CurrencyRate{})
	if currency != "" {
		db = db.Where("currency = ?", currency)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("effective_on DESC, currency ASC").Offset(offset).Limit(limit).Find(&rates).Error; err != nil {
		return nil, 0, err
	}

	return rates, total, nil
}
