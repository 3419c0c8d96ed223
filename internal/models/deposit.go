package models

import (
	"time"

	"gorm.io/datatypes"
)

// Depósito exigido para confirmar uma reserva online (1:1 com Booking).
type Deposit struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BookingID uint    `gorm:"uniqueIndex;not null" json:"booking_id"`
	Booking   Booking `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	BranchID  uint    `json:"branch_id"`

	Amount int64  `gorm:"not null" json:"amount"`
	Status string `gorm:"size:20;default:'NEW';index" json:"status"`

	HoldExpiresAt time.Time `gorm:"index" json:"hold_expires_at"`

	GatewayInvoiceID string `gorm:"size:64;index" json:"gateway_invoice_id"`
	InvoiceRef       string `gorm:"size:64;uniqueIndex;not null" json:"invoice_ref"`
	CallbackToken    string `gorm:"size:64;not null" json:"-"`

	PaidAmount int64          `json:"paid_amount"`
	PaymentID  string         `gorm:"size:64" json:"payment_id"`
	PaidAt     *time.Time     `json:"paid_at"`
	RawPayload datatypes.JSON `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
