package repository

import (
	"context"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepository interface {
	FindLevel(ctx context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error)
	FindLevelForUpdate(ctx context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error)
	CreateLevel(ctx context.Context, level *model.StockLevel) error
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockLevel, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.StockLevel, error)
	TotalByProduct(ctx context.Context, productID uuid.UUID) (int, error)
	CreateEntry(ctx context.Context, entry *model.StockEntry) error
	ListEntriesByProduct(ctx context.Context, productID uuid.UUID, page, limit int) ([]model.StockEntry, int64, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) FindLevel(ctx context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	var level model.StockLevel
	if err := GetDB(ctx, r.db).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

// FindLevelForUpdate takes a row lock on the stock record. Callers must lock
// keys in a deterministic order to stay deadlock-free.
func (r *stockRepository) FindLevelForUpdate(ctx context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	var level model.StockLevel
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *stockRepository) CreateLevel(ctx context.Context, level *model.StockLevel) error {
	return GetDB(ctx, r.db).Create(level).Error
}

func (r *stockRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return GetDB(ctx, r.db).Model(&model.StockLevel{}).Where("id = ?", id).Update("quantity", quantity).Error
}

func (r *stockRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockLevel, error) {
	var levels []model.StockLevel
	if err := GetDB(ctx, r.db).Preload("Location").Where("product_id = ?", productID).Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *stockRepository) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.StockLevel, error) {
	var levels []model.StockLevel
	if err := GetDB(ctx, r.db).Preload("Product").Where("location_id = ?", locationID).Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *stockRepository) TotalByProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	var total *int
	err := GetDB(ctx, r.db).Model(&model.StockLevel{}).
		Select("SUM(quantity)").
		Where("product_id = ?", productID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *stockRepository) CreateEntry(ctx context.Context, entry *model.StockEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *stockRepository) ListEntriesByProduct(ctx context.Context, productID uuid.UUID, page, limit int) ([]model.StockEntry, int64, error) {
	var entries []model.StockEntry
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockEntry{}).Where("product_id = ?", productID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
