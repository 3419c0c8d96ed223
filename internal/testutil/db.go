// Package testutil monta um banco SQLite em memória com o schema da aplicação.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BruksfildServices01/clinic-scheduler/internal/db"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
)

var seq atomic.Int64

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	// cada teste com seu próprio banco compartilhado em memória
	dsn := fmt.Sprintf("file:clinic_test_%d?mode=memory&cache=shared", seq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

type Fixture struct {
	Branch models.Branch
	Doctor models.User
	Nurse  models.User
}

// Seed cria uma filial, um médico e uma recepcionista, e publica o
// expediente do médico para a data informada.
func Seed(t *testing.T, gdb *gorm.DB, date string) Fixture {
	t.Helper()

	f := Fixture{
		Branch: models.Branch{Name: "Central", Slug: fmt.Sprintf("central-%d", seq.Add(1)), Timezone: "Asia/Ulaanbaatar"},
	}
	require.NoError(t, gdb.Create(&f.Branch).Error)

	f.Doctor = models.User{BranchID: f.Branch.ID, Name: "Dr. Bold", Email: fmt.Sprintf("bold-%d@clinic.mn", seq.Add(1)), Role: models.RoleDoctor}
	require.NoError(t, gdb.Create(&f.Doctor).Error)

	f.Nurse = models.User{BranchID: f.Branch.ID, Name: "Saraa", Email: fmt.Sprintf("saraa-%d@clinic.mn", seq.Add(1)), Role: models.RoleReceptionist}
	require.NoError(t, gdb.Create(&f.Nurse).Error)

	wh := models.WorkingHours{
		DoctorID:   f.Doctor.ID,
		BranchID:   f.Branch.ID,
		Date:       date,
		StartTime:  "09:00",
		EndTime:    "17:00",
		BreakStart: "12:00",
		BreakEnd:   "13:00",
		Published:  true,
	}
	require.NoError(t, gdb.Create(&wh).Error)

	return f
}
