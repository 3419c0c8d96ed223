package models

import "time"

// Expediente publicado de um médico numa filial, por data.
type WorkingHours struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	DoctorID uint `gorm:"index:idx_wh_doctor_branch_date" json:"doctor_id"`
	BranchID uint `gorm:"index:idx_wh_doctor_branch_date" json:"branch_id"`

	Date string `gorm:"size:10;index:idx_wh_doctor_branch_date" json:"date"`

	StartTime  string `gorm:"size:5" json:"start_time"`
	EndTime    string `gorm:"size:5" json:"end_time"`
	BreakStart string `gorm:"size:5" json:"break_start"`
	BreakEnd   string `gorm:"size:5" json:"break_end"`
	Published  bool   `gorm:"not null" json:"published"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
