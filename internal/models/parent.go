package models

import (
	"time"

	"gorm.io/gorm"
)

// Parent is the one-to-one profile of a user with role parent
type Parent struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID      uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	PhoneNumber string `gorm:"type:varchar(20)" json:"phone_number"` // international format, e.g. +233201234567
	Verified    bool   `gorm:"default:false" json:"verified"`
}
