package models

import (
	"time"

	"gorm.io/datatypes"
)

// Fatura genérica do gateway (fora do fluxo de reserva), chaveada pelo
// próprio invoice_id do gateway.
type GatewayInvoice struct {
	ID       string `gorm:"primaryKey;size:64" json:"id"`
	BranchID uint   `json:"branch_id"`

	Reference   string `gorm:"size:64" json:"reference"`
	Description string `gorm:"size:255" json:"description"`
	Amount      int64  `json:"amount"`
	Status      string `gorm:"size:20;default:'NEW'" json:"status"`

	PaidAmount int64          `json:"paid_amount"`
	PaymentID  string         `gorm:"size:64" json:"payment_id"`
	PaidAt     *time.Time     `json:"paid_at"`
	RawPayload datatypes.JSON `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
