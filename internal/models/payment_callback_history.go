package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentGateway string

const (
	PaymentGatewayPaystack PaymentGateway = "paystack"
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
)

// PaymentCallbackHistory keeps every gateway verification answer for a payment.
// Payment.Metadata only holds the latest one.
type PaymentCallbackHistory struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PaymentID      uint           `gorm:"index;not null" json:"payment_id"`
	Reference      string         `gorm:"type:varchar(128);index;not null" json:"reference"`
	PaymentGateway PaymentGateway `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	GatewayStatus  string         `gorm:"type:varchar(50)" json:"gateway_status"`
	Transitioned   bool           `json:"transitioned"` // this answer moved the payment out of pending
	Metadata       datatypes.JSON `json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
}
