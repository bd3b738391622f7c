package database

import (
	"log"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.PasswordReset{},
		&model.Product{},
		&model.Warehouse{},
		&model.Location{},
		&model.Operation{},
		&model.OperationLine{},
		&model.StockLevel{},
		&model.StockEntry{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
