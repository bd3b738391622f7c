package model

import (
	"time"

	"github.com/google/uuid"
)

// StockLevel holds the current quantity of a product at a location.
// Mutated only by operation validation, never by a form submission.
type StockLevel struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_levels_product_location" json:"product_id"`
	Product    Product   `gorm:"foreignKey:ProductID" json:"-"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_levels_product_location;index" json:"location_id"`
	Location   Location  `gorm:"foreignKey:LocationID" json:"-"`
	Quantity   int       `gorm:"type:int;not null;default:0" json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StockEntry records one applied stock delta strictly (the stock ledger)
type StockEntry struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	LocationID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"location_id"`
	OperationID     *uuid.UUID `gorm:"type:uuid;index" json:"operation_id"`
	OperationKind   string     `gorm:"type:varchar(20)" json:"operation_kind"`
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter      int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
}
