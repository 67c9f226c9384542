package repository

import (
	"context"

	"longan-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DealRepository interface {
	Create(ctx context.Context, deal *model.Deal) error
	Update(ctx context.Context, deal *model.Deal) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Deal, error)
	FindByNumber(ctx context.Context, number string) (*model.Deal, error)
	List(ctx context.Context, status, search string, page, limit int) ([]model.Deal, int64, error)
	ReplaceItems(ctx context.Context, dealID uuid.UUID, items []model.DealItem) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type dealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

func (r *dealRepository) Create(ctx context.Context, deal *model.Deal) error {
	return GetDB(ctx, r.db).Create(deal).Error
}

func (r *dealRepository) Update(ctx context.Context, deal *model.Deal) error {
	// Items are replaced separately; Save would try to upsert stale children.
	return GetDB(ctx, r.db).Omit("Items").Save(deal).Error
}

func (r *dealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Deal{}).Error
}

func (r *dealRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	var deal model.Deal
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&deal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) FindByNumber(ctx context.Context, number string) (*model.Deal, error) {
	var deal model.Deal
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("number = ?", number).First(&deal).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) List(ctx context.Context, status, search string, page, limit int) ([]model.Deal, int64, error) {
	var deals []model.Deal
	var total int64

	filter := func(q *gorm.DB) *gorm.DB {
		if status != "" {
			q = q.Where("status = ?", status)
		}
		if search != "" {
			q = q.Where("number ILIKE ? OR client_name ILIKE ? OR supplier_name ILIKE ?",
				"%"+search+"%", "%"+search+"%", "%"+search+"%")
		}
		return q
	}

	db := GetDB(ctx, r.db)
	if err := filter(db.Model(&model.Deal{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := filter(db.Model(&model.Deal{})).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&deals).Error; err != nil {
		return nil, 0, err
	}

	return deals, total, nil
}

// ReplaceItems swaps a deal's line items wholesale. Items are whole-part
// owned by the deal, so partial item updates never happen at this level.
func (r *dealRepository) ReplaceItems(ctx context.Context, dealID uuid.UUID, items []model.DealItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("deal_id = ?", dealID).Delete(&model.DealItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].DealID = dealID
		items[i].Position = i
	}
	return db.Create(&items).Error
}

func (r *dealRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Deal{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
