package models

import "time"

// Nome sentinela do paciente compartilhado usado pelas reservas online
// antes de o cliente real ser identificado.
const (
	PlaceholderFirstName = "Online"
	PlaceholderLastName  = "Customer"
)

type Patient struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	BranchID uint `gorm:"index" json:"branch_id"`

	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Phone     string `gorm:"size:20" json:"phone"`
	Email     string `gorm:"size:100" json:"email"`

	IsPlaceholder bool `gorm:"default:false" json:"is_placeholder"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
