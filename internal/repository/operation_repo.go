package repository

import (
	"context"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OperationFilter narrows operation listings
type OperationFilter struct {
	Kind   string
	Status string
	Page   int
	Limit  int
}

type OperationRepository interface {
	Create(ctx context.Context, op *model.Operation) error
	CreateLine(ctx context.Context, line *model.OperationLine) error
	Save(ctx context.Context, op *model.Operation) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ReplaceLines(ctx context.Context, opID uuid.UUID, lines []model.OperationLine) error
	UpdateLineActual(ctx context.Context, lineID uuid.UUID, actual int) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Operation, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Operation, error)
	List(ctx context.Context, filter OperationFilter) ([]model.Operation, int64, error)
	CountByKind(ctx context.Context, kind string) (int64, error)
	ExistsForLocation(ctx context.Context, locationID uuid.UUID) (bool, error)
	ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error)
}

type operationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) OperationRepository {
	return &operationRepository{db: db}
}

func (r *operationRepository) Create(ctx context.Context, op *model.Operation) error {
	return GetDB(ctx, r.db).Create(op).Error
}

func (r *operationRepository) CreateLine(ctx context.Context, line *model.OperationLine) error {
	return GetDB(ctx, r.db).Create(line).Error
}

func (r *operationRepository) Save(ctx context.Context, op *model.Operation) error {
	return GetDB(ctx, r.db).Omit("Lines").Save(op).Error
}

func (r *operationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Operation{}).Where("id = ?", id).Update("status", status).Error
}

// ReplaceLines swaps the full line set of a draft/waiting operation.
func (r *operationRepository) ReplaceLines(ctx context.Context, opID uuid.UUID, lines []model.OperationLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("operation_id = ?", opID).Delete(&model.OperationLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].OperationID = opID
		if err := db.Create(&lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *operationRepository) UpdateLineActual(ctx context.Context, lineID uuid.UUID, actual int) error {
	res := GetDB(ctx, r.db).Model(&model.OperationLine{}).Where("id = ?", lineID).Update("actual_quantity", actual)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *operationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("operation_id = ?", id).Delete(&model.OperationLine{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Operation{}).Error
}

func (r *operationRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Operation, error) {
	var op model.Operation
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		Preload("SourceLocation").
		Preload("DestinationLocation").
		First(&op, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

// FindByIDForUpdate locks the operation row so concurrent validations of the
// same operation serialize; at most one writer reaches DONE.
func (r *operationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Operation, error) {
	var op model.Operation
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&op, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("operation_id = ?", id).Find(&op.Lines).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *operationRepository) List(ctx context.Context, filter OperationFilter) ([]model.Operation, int64, error) {
	var ops []model.Operation
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Operation{})
	if filter.Kind != "" {
		db = db.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.
		Preload("Lines").
		Preload("SourceLocation").
		Preload("DestinationLocation").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ops).Error; err != nil {
		return nil, 0, err
	}

	return ops, total, nil
}

func (r *operationRepository) CountByKind(ctx context.Context, kind string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Operation{}).Where("kind = ?", kind).Count(&count).Error
	return count, err
}

func (r *operationRepository) ExistsForLocation(ctx context.Context, locationID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Operation{}).
		Where("(source_location_id = ? OR destination_location_id = ?) AND status <> ?", locationID, locationID, model.StatusCancelled).
		Count(&count).Error
	return count > 0, err
}

func (r *operationRepository) ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.OperationLine{}).
		Joins("JOIN operations ON operations.id = operation_lines.operation_id").
		Where("operation_lines.product_id = ? AND operations.status <> ?", productID, model.StatusCancelled).
		Count(&count).Error
	return count > 0, err
}
