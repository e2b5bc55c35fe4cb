package model

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one record of the remote document store. Bodies are untyped
// JSON maps; typed views are decoded at the store boundary.
type Document struct {
	Collection string            `gorm:"primaryKey;size:128"`
	ID         string            `gorm:"primaryKey;size:128"`
	Data       datatypes.JSONMap `gorm:"not null"`
	CreatedAt  time.Time         `gorm:"not null"`
	UpdatedAt  time.Time         `gorm:"not null;index"`
}

// Collections used by the application.
const (
	CollectionPackers          = "packers_calibration"
	CollectionPLCModifications = "plcModifications"
)
