package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockAlert levels derived from the threshold fields below (informational only)
const (
	AlertOutOfStock   = "OUT_OF_STOCK"
	AlertBelowMinimum = "BELOW_MINIMUM"
	AlertReorder      = "REORDER"
	AlertOverstock    = "OVERSTOCK"
	AlertOK           = "OK"
)

// Product represents an item in the inventory
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU           string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Unit          string          `gorm:"type:varchar(20);default:'pcs'" json:"unit"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"unit_price"`
	CurrentStock  int             `gorm:"type:int;default:0;not null" json:"current_stock"`
	ReorderPoint  int             `gorm:"type:int;default:0" json:"reorder_point"`
	MinStockLevel int             `gorm:"type:int;default:0" json:"min_stock_level"`
	MaxStockLevel int             `gorm:"type:int;default:0" json:"max_stock_level"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// AlertLevel classifies the current stock against the product thresholds.
// Zero-valued thresholds are treated as unset.
func (p *Product) AlertLevel() string {
	switch {
	case p.CurrentStock <= 0:
		return AlertOutOfStock
	case p.MinStockLevel > 0 && p.CurrentStock < p.MinStockLevel:
		return AlertBelowMinimum
	case p.ReorderPoint > 0 && p.CurrentStock <= p.ReorderPoint:
		return AlertReorder
	case p.MaxStockLevel > 0 && p.CurrentStock > p.MaxStockLevel:
		return AlertOverstock
	}
	return AlertOK
}
