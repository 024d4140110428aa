package models

import (
	"strings"
	"time"
)

// UserRole represents the role of an account
type UserRole string

const (
	UserRoleParent UserRole = "parent"
	UserRoleStaff  UserRole = "staff"
	UserRoleAdmin  UserRole = "admin"
)

// User represents an authenticated account. Registration and login live outside this service;
// payments only read users.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username  string   `gorm:"type:varchar(150);uniqueIndex" json:"username"`
	FirstName string   `gorm:"type:varchar(150)" json:"first_name"`
	LastName  string   `gorm:"type:varchar(150)" json:"last_name"`
	Email     string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      UserRole `gorm:"type:varchar(20);default:'parent'" json:"role"`

	// Relationships
	ParentProfile *Parent   `gorm:"foreignKey:UserID" json:"parent_profile,omitempty"`
	Payments      []Payment `gorm:"foreignKey:PayerID" json:"payments,omitempty"`
}

// FullName returns "First Last", falling back to the username
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// PhoneNumber returns the parent profile phone, or "" when the user has no parent profile
func (u User) PhoneNumber() string {
	if u.ParentProfile == nil {
		return ""
	}
	return strings.TrimSpace(u.ParentProfile.PhoneNumber)
}
