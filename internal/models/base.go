package models

import (
	"time"

	"pocketbook/internal/uuid"

	"gorm.io/gorm"
)

// Base holds the identifier and timestamps shared by UUID-keyed tables.
// Rows are never hard-deleted; tables that support removal carry their own
// active flag instead of a deleted_at column.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUIDv7 to records created without an ID.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}
