package models

import "time"

// Category groups transactions and budgets. Categories are keyed by an
// integer and scoped to their owner.
type Category struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Description string          `gorm:"not null" json:"description"`
	Kind        TransactionKind `gorm:"type:varchar(16);not null;default:expense" json:"kind"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
