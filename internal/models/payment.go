package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

type FeeType string

const (
	FeeTypeTuition    FeeType = "tuition"
	FeeTypeBusFee     FeeType = "bus_fee"
	FeeTypeFeedingFee FeeType = "feeding_fee"
)

// Label turns "bus_fee" into "Bus Fee"
func (f FeeType) Label() string {
	words := strings.Fields(strings.ReplaceAll(string(f), "_", " "))
	if len(words) == 0 {
		return "School Fee"
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Payment records one attempt to pay a fee through the gateway.
// Status moves pending -> success or pending -> failed and never leaves a terminal state.
type Payment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Reference string          `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"`
	PayerID   uint            `gorm:"index;not null" json:"payer_id"`
	StudentID *uint           `gorm:"index" json:"student_id"`
	FeeType   FeeType         `gorm:"type:varchar(32)" json:"fee_type"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"` // major units (GHS, not pesewas)
	Status    PaymentStatus   `gorm:"type:varchar(16);default:'pending';index;not null" json:"status"`
	Verified  bool            `gorm:"default:false;not null" json:"verified"`
	Metadata  datatypes.JSON  `json:"metadata"` // last raw gateway response

	// Relationships
	Payer   User     `gorm:"foreignKey:PayerID;constraint:OnDelete:CASCADE" json:"payer,omitempty"`
	Student *Student `gorm:"foreignKey:StudentID;constraint:OnDelete:SET NULL" json:"student,omitempty"`
}

// AmountDisplay formats the amount as "GHS 500.00"
func (p Payment) AmountDisplay(currency string) string {
	return fmt.Sprintf("%s %s", currency, p.Amount.StringFixed(2))
}
