package models

import "time"

// Trilha de auditoria por filial; EntityID aponta para a reserva, médico
// ou fatura conforme Entity.
type AuditLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BranchID uint   `gorm:"index:idx_audit_branch_created" json:"branch_id"`
	UserID   *uint  `json:"user_id"`
	Action   string `gorm:"size:50;not null;index" json:"action"`

	Entity   string `gorm:"size:50;index:idx_audit_entity" json:"entity"`
	EntityID *uint  `gorm:"index:idx_audit_entity" json:"entity_id"`
	Metadata string `gorm:"type:text" json:"metadata"`

	CreatedAt time.Time `gorm:"index:idx_audit_branch_created" json:"created_at"`
}
