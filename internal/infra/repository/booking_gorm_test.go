package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
	"github.com/BruksfildServices01/clinic-scheduler/internal/testutil"
)

const day = "2026-10-20"

func newHeld(t *testing.T, repo *BookingGormRepository, f testutil.Fixture, start, end string) (*models.Booking, *models.Deposit) {
	t.Helper()
	ctx := context.Background()

	patient, err := repo.GetOrCreatePlaceholderPatient(ctx, f.Branch.ID)
	require.NoError(t, err)

	b := &models.Booking{
		BranchID:  f.Branch.ID,
		DoctorID:  f.Doctor.ID,
		PatientID: patient.ID,
		Date:      day,
		StartTime: start,
		EndTime:   end,
		Status:    string(domain.StatusOnlineHeld),
	}
	require.NoError(t, repo.CreateBooking(ctx, b))

	d := &models.Deposit{
		BookingID:        b.ID,
		BranchID:         f.Branch.ID,
		Amount:           20000,
		Status:           string(domain.DepositNew),
		HoldExpiresAt:    time.Now().UTC().Add(10 * time.Minute),
		GatewayInvoiceID: "inv-" + start,
		InvoiceRef:       domain.InvoiceRef(b.ID, time.Now().UnixMilli()),
		CallbackToken:    "tok",
	}
	require.NoError(t, repo.CreateDeposit(ctx, d))
	return b, d
}

func TestPlaceholderPatient(t *testing.T) {
	gdb := testutil.NewDB(t)
	f := testutil.Seed(t, gdb, day)
	repo := NewBookingGormRepository(gdb)

	p1, err := repo.GetOrCreatePlaceholderPatient(context.Background(), f.Branch.ID)
	require.NoError(t, err)
	p2, err := repo.GetOrCreatePlaceholderPatient(context.Background(), f.Branch.ID)
	require.NoError(t, err)

	assert.Equal(t, p1.ID, p2.ID)
	assert.True(t, p1.IsPlaceholder)
	assert.Equal(t, models.PlaceholderFirstName, p1.FirstName)

	var count int64
	require.NoError(t, gdb.Model(&models.Patient{}).Where("is_placeholder = ?", true).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestActiveSlotUniqueIndex(t *testing.T) {
	gdb := testutil.NewDB(t)
	f := testutil.Seed(t, gdb, day)
	repo := NewBookingGormRepository(gdb)
	ctx := context.Background()

	first, _ := newHeld(t, repo, f, "09:00", "09:30")

	dup := &models.Booking{
		BranchID: f.Branch.ID, DoctorID: f.Doctor.ID, PatientID: first.PatientID,
		Date: day, StartTime: "09:00", EndTime: "09:30", Status: string(domain.StatusOnlineHeld),
	}
	err := repo.CreateBooking(ctx, dup)
	require.Error(t, err)
	assert.True(t, httperr.IsUniqueViolation(err))

	// reservas expiradas não ocupam o índice
	require.NoError(t, gdb.Model(first).Update("status", string(domain.StatusOnlineExpired)).Error)
	assert.NoError(t, repo.CreateBooking(ctx, dup))
}

func TestApplyTransition(t *testing.T) {
	gdb := testutil.NewDB(t)
	f := testutil.Seed(t, gdb, day)
	repo := NewBookingGormRepository(gdb)
	ctx := context.Background()

	b, _ := newHeld(t, repo, f, "09:00", "09:30")

	paidAt := time.Date(2026, 10, 20, 1, 3, 0, 0, time.UTC)
	applied, err := repo.ApplyTransition(ctx, b.ID, domain.TransitionConfirm, &domain.Settlement{
		PaidAmount: 20000,
		PaymentID:  "pay-1",
		PaidAt:     &paidAt,
		Raw:        []byte(`{"count":1}`),
	})
	require.NoError(t, err)
	assert.True(t, applied)

	// segunda tentativa, ou uma expiração concorrente, não aplica nada
	applied, err = repo.ApplyTransition(ctx, b.ID, domain.TransitionConfirm, nil)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.ApplyTransition(ctx, b.ID, domain.TransitionExpire, nil)
	require.NoError(t, err)
	assert.False(t, applied)

	d, err := repo.GetDepositByBookingID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.DepositPaid), d.Status)
	assert.Equal(t, int64(20000), d.PaidAmount)
	assert.Equal(t, "pay-1", d.PaymentID)
	assert.JSONEq(t, `{"count":1}`, string(d.RawPayload))

	got, err := repo.GetBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusOnlineConfirmed), got.Status)
}

func TestSweepQueries(t *testing.T) {
	gdb := testutil.NewDB(t)
	f := testutil.Seed(t, gdb, day)
	repo := NewBookingGormRepository(gdb)
	ctx := context.Background()

	_, d := newHeld(t, repo, f, "09:00", "09:30")
	require.NoError(t, gdb.Model(d).Update("hold_expires_at", time.Now().UTC().Add(-time.Minute)).Error)
	newHeld(t, repo, f, "10:00", "10:30")

	expired, err := repo.ListExpiredHolds(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, d.ID, expired[0].ID)

	orphan := &models.Booking{
		BranchID: f.Branch.ID, DoctorID: f.Doctor.ID, Date: day,
		StartTime: "11:00", EndTime: "11:30", Status: string(domain.StatusOnlineHeld),
	}
	require.NoError(t, repo.CreateBooking(ctx, orphan))

	orphans, err := repo.ListHoldsWithoutDeposit(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan.ID, orphans[0].ID)

	ok, err := repo.ExpireHoldWithoutDeposit(ctx, orphan.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExpireHoldWithoutDeposit(ctx, orphan.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListOnlineBookings(t *testing.T) {
	gdb := testutil.NewDB(t)
	f := testutil.Seed(t, gdb, day)
	repo := NewBookingGormRepository(gdb)
	ctx := context.Background()

	newHeld(t, repo, f, "10:00", "10:30")
	newHeld(t, repo, f, "09:00", "09:30")
	require.NoError(t, repo.CreateBooking(ctx, &models.Booking{
		BranchID: f.Branch.ID, DoctorID: f.Doctor.ID, Date: day,
		StartTime: "14:00", EndTime: "14:30", Status: string(domain.StatusConfirmed),
	}))

	rows, err := repo.ListOnlineBookings(ctx, f.Branch.ID, day)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "09:00", rows[0].Booking.StartTime)
	require.NotNil(t, rows[0].Deposit)
	assert.Equal(t, string(domain.DepositNew), rows[0].Deposit.Status)
}

func TestReplaceSchedules(t *testing.T) {
	gdb := testutil.NewDB(t)
	f := testutil.Seed(t, gdb, day)
	repo := NewBookingGormRepository(gdb)
	ctx := context.Background()

	err := repo.ReplaceSchedules(ctx, f.Doctor.ID, f.Branch.ID, day, []models.WorkingHours{
		{DoctorID: f.Doctor.ID, BranchID: f.Branch.ID, Date: day, StartTime: "14:00", EndTime: "18:00", Published: true},
		{DoctorID: f.Doctor.ID, BranchID: f.Branch.ID, Date: day, StartTime: "08:00", EndTime: "11:00", Published: false},
	})
	require.NoError(t, err)

	rows, err := repo.ListSchedules(ctx, f.Doctor.ID, f.Branch.ID, day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "14:00", rows[0].StartTime)
}

func TestSettleGatewayInvoice(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := NewBookingGormRepository(gdb)
	ctx := context.Background()

	require.NoError(t, gdb.Create(&models.GatewayInvoice{ID: "inv-x", BranchID: 1, Amount: 5000, Status: "NEW"}).Error)

	ok, err := repo.SettleGatewayInvoice(ctx, "inv-x", &domain.Settlement{PaidAmount: 5000, PaymentID: "p"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SettleGatewayInvoice(ctx, "inv-x", &domain.Settlement{PaidAmount: 5000, PaymentID: "p"})
	require.NoError(t, err)
	assert.False(t, ok)

	inv, err := repo.GetGatewayInvoice(ctx, "inv-x")
	require.NoError(t, err)
	assert.Equal(t, "PAID", inv.Status)
}
