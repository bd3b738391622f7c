package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/cache"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/logger"

	"gorm.io/gorm"
)

const (
	dashboardCacheKey = "dashboard:summary"
	dashboardCacheTTL = 60 * time.Second
)

type KindStatusCount struct {
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type DueOperation struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	ScheduledDate string `json:"scheduled_date"`
}

type LowStockAlert struct {
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	CurrentStock int    `json:"current_stock"`
	ReorderPoint int    `json:"reorder_point"`
	AlertLevel   string `json:"alert_level"`
}

type DashboardSummary struct {
	OperationCounts []KindStatusCount    `json:"operation_counts"`
	DueToday        []DueOperation       `json:"due_today"`
	LowStock        []LowStockAlert      `json:"low_stock"`
	RecentMoves     []StockEntryResponse `json:"recent_moves"`
	TotalProducts   int64                `json:"total_products"`
	TotalWarehouses int64                `json:"total_warehouses"`
	GeneratedAt     string               `json:"generated_at"`
}

type DashboardService interface {
	Summary(ctx context.Context) (DashboardSummary, error)
}

// dashboardService aggregates across tables with raw grouped queries, so it
// talks to gorm directly instead of going through the repositories.
type dashboardService struct {
	db    *gorm.DB
	cache cache.Client
	log   *logger.Logger
}

func NewDashboardService(db *gorm.DB, cacheClient cache.Client, log *logger.Logger) DashboardService {
	return &dashboardService{db: db, cache: cacheClient, log: log}
}

func (s *dashboardService) Summary(ctx context.Context) (DashboardSummary, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, dashboardCacheKey)
		if err == nil {
			var cached DashboardSummary
			if unmarshalErr := json.Unmarshal([]byte(raw), &cached); unmarshalErr == nil {
				return cached, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Msg("dashboard cache read failed")
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return DashboardSummary{}, err
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(summary); marshalErr == nil {
			if setErr := s.cache.Set(ctx, dashboardCacheKey, payload, dashboardCacheTTL); setErr != nil {
				s.log.Warn().Err(setErr).Msg("dashboard cache write failed")
			}
		}
	}
	return summary, nil
}

func (s *dashboardService) build(ctx context.Context) (DashboardSummary, error) {
	db := s.db.WithContext(ctx)
	summary := DashboardSummary{
		OperationCounts: []KindStatusCount{},
		DueToday:        []DueOperation{},
		LowStock:        []LowStockAlert{},
		RecentMoves:     []StockEntryResponse{},
		GeneratedAt:     time.Now().Format("2006-01-02T15:04:05Z07:00"),
	}

	if err := db.Model(&model.Operation{}).
		Select("kind, status, count(*) as count").
		Group("kind, status").
		Scan(&summary.OperationCounts).Error; err != nil {
		return DashboardSummary{}, apperror.NewInternal("failed to count operations", err)
	}

	// Operations scheduled for today that have not reached a terminal state.
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var due []model.Operation
	if err := db.
		Where("scheduled_date >= ? AND scheduled_date < ?", dayStart, dayEnd).
		Where("status NOT IN ?", []string{model.StatusDone, model.StatusCancelled}).
		Order("scheduled_date asc").
		Limit(20).
		Find(&due).Error; err != nil {
		return DashboardSummary{}, apperror.NewInternal("failed to list due operations", err)
	}
	for _, op := range due {
		item := DueOperation{
			ID:        op.ID.String(),
			Reference: op.Reference,
			Kind:      op.Kind,
			Status:    op.Status,
		}
		if op.ScheduledDate != nil {
			item.ScheduledDate = op.ScheduledDate.Format("2006-01-02")
		}
		summary.DueToday = append(summary.DueToday, item)
	}

	var lowStock []model.Product
	if err := db.
		Where("current_stock <= reorder_point OR current_stock <= min_stock_level").
		Order("current_stock asc").
		Limit(20).
		Find(&lowStock).Error; err != nil {
		return DashboardSummary{}, apperror.NewInternal("failed to list low-stock products", err)
	}
	for _, p := range lowStock {
		summary.LowStock = append(summary.LowStock, LowStockAlert{
			ProductID:    p.ID.String(),
			SKU:          p.SKU,
			Name:         p.Name,
			CurrentStock: p.CurrentStock,
			ReorderPoint: p.ReorderPoint,
			AlertLevel:   p.AlertLevel(),
		})
	}

	var moves []model.StockEntry
	if err := db.Order("created_at desc").Limit(10).Find(&moves).Error; err != nil {
		return DashboardSummary{}, apperror.NewInternal("failed to list recent stock entries", err)
	}
	for _, entry := range moves {
		item := StockEntryResponse{
			ID:              entry.ID.String(),
			ProductID:       entry.ProductID.String(),
			LocationID:      entry.LocationID.String(),
			OperationKind:   entry.OperationKind,
			QuantityChanged: entry.QuantityChanged,
			StockAfter:      entry.StockAfter,
			CreatedAt:       entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if entry.OperationID != nil {
			item.OperationID = entry.OperationID.String()
		}
		summary.RecentMoves = append(summary.RecentMoves, item)
	}

	if err := db.Model(&model.Product{}).Count(&summary.TotalProducts).Error; err != nil {
		return DashboardSummary{}, apperror.NewInternal("failed to count products", err)
	}
	if err := db.Model(&model.Warehouse{}).Count(&summary.TotalWarehouses).Error; err != nil {
		return DashboardSummary{}, apperror.NewInternal("failed to count warehouses", err)
	}

	return summary, nil
}
