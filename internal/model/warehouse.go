package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationType Enum Simulation
const (
	LocationTypeStorage   = "STORAGE"
	LocationTypePicking   = "PICKING"
	LocationTypeReceiving = "RECEIVING"
	LocationTypeShipping  = "SHIPPING"
)

// Warehouse represents a physical site holding stock locations
type Warehouse struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code      string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Address   string         `gorm:"type:text" json:"address"`
	Locations []Location     `gorm:"foreignKey:WarehouseID" json:"locations,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Location represents a named storage area within a warehouse
type Location struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WarehouseID uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_locations_warehouse_code" json:"warehouse_id"`
	Warehouse   *Warehouse     `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
	Code        string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_locations_warehouse_code" json:"code"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Type        string         `gorm:"type:varchar(20);not null;default:'STORAGE'" json:"type"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
