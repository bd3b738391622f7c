package repository

import (
	"context"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationRepository interface {
	Create(ctx context.Context, location *model.Location) error
	Update(ctx context.Context, location *model.Location) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error)
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]model.Location, error)
	List(ctx context.Context, page, limit int) ([]model.Location, int64, error)
}

type locationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Create(ctx context.Context, location *model.Location) error {
	return GetDB(ctx, r.db).Create(location).Error
}

func (r *locationRepository) Update(ctx context.Context, location *model.Location) error {
	return GetDB(ctx, r.db).Save(location).Error
}

func (r *locationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Location{}).Error
}

func (r *locationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var location model.Location
	if err := GetDB(ctx, r.db).Preload("Warehouse").First(&location, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *locationRepository) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]model.Location, error) {
	var locations []model.Location
	if err := GetDB(ctx, r.db).Where("warehouse_id = ?", warehouseID).Order("code asc").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *locationRepository) List(ctx context.Context, page, limit int) ([]model.Location, int64, error) {
	var locations []model.Location
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Location{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Warehouse").Order("created_at desc").Offset(offset).Limit(limit).Find(&locations).Error; err != nil {
		return nil, 0, err
	}

	return locations, total, nil
}
