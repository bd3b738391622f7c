package service

import (
	"context"
	"errors"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type CreateWarehouseRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

type UpdateWarehouseRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

type CreateLocationRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"omitempty,oneof=STORAGE PICKING RECEIVING SHIPPING"`
}

type LocationResponse struct {
	ID          string `json:"id"`
	WarehouseID string `json:"warehouse_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
}

type WarehouseResponse struct {
	ID        string             `json:"id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Address   string             `json:"address"`
	Locations []LocationResponse `json:"locations"`
}

type WarehouseService interface {
	List(ctx context.Context, page, limit int, search string) ([]WarehouseResponse, int64, error)
	Get(ctx context.Context, id string) (WarehouseResponse, error)
	Create(ctx context.Context, userID string, req CreateWarehouseRequest) (WarehouseResponse, error)
	Update(ctx context.Context, userID, id string, req UpdateWarehouseRequest) (WarehouseResponse, error)
	Delete(ctx context.Context, userID, id string) error
	AddLocation(ctx context.Context, userID, warehouseID string, req CreateLocationRequest) (LocationResponse, error)
	DeleteLocation(ctx context.Context, userID, locationID string) error
	ListLocations(ctx context.Context, warehouseID string) ([]LocationResponse, error)
}

type warehouseService struct {
	warehouseRepo repository.WarehouseRepository
	locationRepo  repository.LocationRepository
	operationRepo repository.OperationRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewWarehouseService(
	warehouseRepo repository.WarehouseRepository,
	locationRepo repository.LocationRepository,
	operationRepo repository.OperationRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) WarehouseService {
	return &warehouseService{
		warehouseRepo: warehouseRepo,
		locationRepo:  locationRepo,
		operationRepo: operationRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

func toLocationResponse(l *model.Location) LocationResponse {
	return LocationResponse{
		ID:          l.ID.String(),
		WarehouseID: l.WarehouseID.String(),
		Code:        l.Code,
		Name:        l.Name,
		Type:        l.Type,
	}
}

func toWarehouseResponse(w *model.Warehouse) WarehouseResponse {
	locations := make([]LocationResponse, 0, len(w.Locations))
	for i := range w.Locations {
		locations = append(locations, toLocationResponse(&w.Locations[i]))
	}
	return WarehouseResponse{
		ID:        w.ID.String(),
		Code:      w.Code,
		Name:      w.Name,
		Address:   w.Address,
		Locations: locations,
	}
}

func (s *warehouseService) List(ctx context.Context, page, limit int, search string) ([]WarehouseResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	warehouses, total, err := s.warehouseRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, apperror.NewInternal("failed to list warehouses", err)
	}

	res := make([]WarehouseResponse, 0, len(warehouses))
	for i := range warehouses {
		res = append(res, toWarehouseResponse(&warehouses[i]))
	}
	return res, total, nil
}

func (s *warehouseService) Get(ctx context.Context, id string) (WarehouseResponse, error) {
	wid, err := uuid.Parse(id)
	if err != nil {
		return WarehouseResponse{}, apperror.NewValidation("invalid warehouse id")
	}
	warehouse, err := s.warehouseRepo.FindByID(ctx, wid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WarehouseResponse{}, apperror.NewNotFound("warehouse", id)
		}
		return WarehouseResponse{}, apperror.NewInternal("failed to load warehouse", err)
	}
	return toWarehouseResponse(warehouse), nil
}

func (s *warehouseService) Create(ctx context.Context, userID string, req CreateWarehouseRequest) (WarehouseResponse, error) {
	if _, err := s.warehouseRepo.FindByCode(ctx, req.Code); err == nil {
		return WarehouseResponse{}, apperror.NewConflict("warehouse code %q already exists", req.Code)
	}

	warehouse := model.Warehouse{
		Code:    req.Code,
		Name:    req.Name,
		Address: req.Address,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.warehouseRepo.Create(txCtx, &warehouse); createErr != nil {
			return apperror.NewInternal("failed to create warehouse", createErr)
		}
		return auditEntry(txCtx, s.auditRepo, userID, model.ActionCreateWarehouse, warehouse.ID.String(), warehouse.Name, req)
	})
	if err != nil {
		return WarehouseResponse{}, err
	}
	return toWarehouseResponse(&warehouse), nil
}

func (s *warehouseService) Update(ctx context.Context, userID, id string, req UpdateWarehouseRequest) (WarehouseResponse, error) {
	wid, err := uuid.Parse(id)
	if err != nil {
		return WarehouseResponse{}, apperror.NewValidation("invalid warehouse id")
	}
	warehouse, err := s.warehouseRepo.FindByID(ctx, wid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WarehouseResponse{}, apperror.NewNotFound("warehouse", id)
		}
		return WarehouseResponse{}, apperror.NewInternal("failed to load warehouse", err)
	}

	warehouse.Name = req.Name
	warehouse.Address = req.Address

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.warehouseRepo.Update(txCtx, warehouse); updateErr != nil {
			return apperror.NewInternal("failed to update warehouse", updateErr)
		}
		return auditEntry(txCtx, s.auditRepo, userID, model.ActionUpdateWarehouse, warehouse.ID.String(), warehouse.Name, req)
	})
	if err != nil {
		return WarehouseResponse{}, err
	}
	return toWarehouseResponse(warehouse), nil
}

func (s *warehouseService) Delete(ctx context.Context, userID, id string) error {
	wid, err := uuid.Parse(id)
	if err != nil {
		return apperror.NewValidation("invalid warehouse id")
	}
	warehouse, err := s.warehouseRepo.FindByID(ctx, wid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("warehouse", id)
		}
		return apperror.NewInternal("failed to load warehouse", err)
	}

	// A warehouse with locations still referenced by operations cannot go.
	for _, location := range warehouse.Locations {
		referenced, refErr := s.operationRepo.ExistsForLocation(ctx, location.ID)
		if refErr != nil {
			return apperror.NewInternal("failed to check location references", refErr)
		}
		if referenced {
			return apperror.NewConflict("location %q is referenced by existing operations", location.Code)
		}
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, location := range warehouse.Locations {
			if delErr := s.locationRepo.Delete(txCtx, location.ID); delErr != nil {
				return apperror.NewInternal("failed to delete location", delErr)
			}
		}
		if delErr := s.warehouseRepo.Delete(txCtx, wid); delErr != nil {
			return apperror.NewInternal("failed to delete warehouse", delErr)
		}
		return auditEntry(txCtx, s.auditRepo, userID, model.ActionDeleteWarehouse, warehouse.ID.String(), warehouse.Name, map[string]bool{"deleted": true})
	})
}

func (s *warehouseService) AddLocation(ctx context.Context, userID, warehouseID string, req CreateLocationRequest) (LocationResponse, error) {
	wid, err := uuid.Parse(warehouseID)
	if err != nil {
		return LocationResponse{}, apperror.NewValidation("invalid warehouse id")
	}
	if _, err := s.warehouseRepo.FindByID(ctx, wid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LocationResponse{}, apperror.NewNotFound("warehouse", warehouseID)
		}
		return LocationResponse{}, apperror.NewInternal("failed to load warehouse", err)
	}

	locationType := req.Type
	if locationType == "" {
		locationType = model.LocationTypeStorage
	}
	location := model.Location{
		WarehouseID: wid,
		Code:        req.Code,
		Name:        req.Name,
		Type:        locationType,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.locationRepo.Create(txCtx, &location); createErr != nil {
			return apperror.NewInternal("failed to create location", createErr)
		}
		return auditEntry(txCtx, s.auditRepo, userID, model.ActionCreateLocation, location.ID.String(), location.Name, req)
	})
	if err != nil {
		return LocationResponse{}, err
	}
	return toLocationResponse(&location), nil
}

func (s *warehouseService) DeleteLocation(ctx context.Context, userID, locationID string) error {
	lid, err := uuid.Parse(locationID)
	if err != nil {
		return apperror.NewValidation("invalid location id")
	}
	location, err := s.locationRepo.FindByID(ctx, lid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("location", locationID)
		}
		return apperror.NewInternal("failed to load location", err)
	}

	referenced, err := s.operationRepo.ExistsForLocation(ctx, lid)
	if err != nil {
		return apperror.NewInternal("failed to check location references", err)
	}
	if referenced {
		return apperror.NewConflict("location %q is referenced by existing operations", location.Code)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.locationRepo.Delete(txCtx, lid); delErr != nil {
			return apperror.NewInternal("failed to delete location", delErr)
		}
		return auditEntry(txCtx, s.auditRepo, userID, model.ActionDeleteLocation, location.ID.String(), location.Name, map[string]bool{"deleted": true})
	})
}

func (s *warehouseService) ListLocations(ctx context.Context, warehouseID string) ([]LocationResponse, error) {
	wid, err := uuid.Parse(warehouseID)
	if err != nil {
		return nil, apperror.NewValidation("invalid warehouse id")
	}

	locations, err := s.locationRepo.ListByWarehouse(ctx, wid)
	if err != nil {
		return nil, apperror.NewInternal("failed to list locations", err)
	}

	res := make([]LocationResponse, 0, len(locations))
	for i := range locations {
		res = append(res, toLocationResponse(&locations[i]))
	}
	return res, nil
}
