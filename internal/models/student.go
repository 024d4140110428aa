package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Student is a pupil fees are paid for
type Student struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	StudentID    string `gorm:"type:varchar(32);uniqueIndex;not null" json:"student_id"` // school code, e.g. "SA007"
	FirstName    string `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string `gorm:"type:varchar(150)" json:"last_name"`
	CurrentClass string `gorm:"type:varchar(100)" json:"current_class"`
}

func (s Student) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.StudentID
	}
	return name
}
