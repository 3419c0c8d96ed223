package db

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-scheduler/internal/config"
	"github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
	"github.com/BruksfildServices01/clinic-scheduler/internal/timezone"
)

func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	tz := cfg.ClinicTimezone
	if !timezone.IsValid(tz) {
		tz = timezone.DefaultTimezone
	}

	res := db.Exec(`
        UPDATE branches
        SET timezone = ?
        WHERE timezone IS NULL OR timezone = ''
    `, tz)
	if res.Error != nil {
		log.Warn("branch timezone backfill failed", zap.Error(res.Error))
	}

	return db, nil
}

// Migrate cria as tabelas e o índice único parcial que impede duas reservas
// ativas no mesmo horário de início do médico.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Patient{},
		&models.WorkingHours{},
		&models.Booking{},
		&models.Deposit{},
		&models.GatewayInvoice{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := db.Exec(activeSlotIndexSQL()).Error; err != nil {
		return fmt.Errorf("create active slot index: %w", err)
	}

	// um paciente placeholder por filial
	if err := db.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS ux_patients_branch_placeholder
        ON patients (branch_id)
        WHERE is_placeholder = true
    `).Error; err != nil {
		return fmt.Errorf("create placeholder index: %w", err)
	}
	return nil
}

func activeSlotIndexSQL() string {
	quoted := make([]string, 0, len(booking.ActiveStatuses))
	for _, s := range booking.ActiveStatuses {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	return fmt.Sprintf(`
        CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_doctor_date_start_active
        ON bookings (doctor_id, date, start_time)
        WHERE status IN (%s)
    `, strings.Join(quoted, ", "))
}
