package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
)

var errNotApplied = errors.New("transition not applied")

type BookingGormRepository struct {
	db *gorm.DB
}

func NewBookingGormRepository(db *gorm.DB) *BookingGormRepository {
	return &BookingGormRepository{db: db}
}

// --------------------------------------------------
// Branch / Doctor
// --------------------------------------------------

func (r *BookingGormRepository) GetBranchByID(
	ctx context.Context,
	id uint,
) (*models.Branch, error) {

	var branch models.Branch
	if err := r.db.WithContext(ctx).First(&branch, id).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *BookingGormRepository) GetUserByID(
	ctx context.Context,
	id uint,
) (*models.User, error) {

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// --------------------------------------------------
// Patient
// --------------------------------------------------

func (r *BookingGormRepository) GetOrCreatePlaceholderPatient(
	ctx context.Context,
	branchID uint,
) (*models.Patient, error) {

	find := func() (*models.Patient, error) {
		var p models.Patient
		if err := r.db.WithContext(ctx).
			Where("branch_id = ? AND is_placeholder = ?", branchID, true).
			First(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	}

	p, err := find()
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p = &models.Patient{
		BranchID:      branchID,
		FirstName:     models.PlaceholderFirstName,
		LastName:      models.PlaceholderLastName,
		IsPlaceholder: true,
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		// outra requisição criou primeiro
		if httperr.IsUniqueViolation(err) {
			return find()
		}
		return nil, err
	}
	return p, nil
}

// --------------------------------------------------
// Availability
// --------------------------------------------------

func (r *BookingGormRepository) ListSchedules(
	ctx context.Context,
	doctorID uint,
	branchID uint,
	date string,
) ([]models.WorkingHours, error) {

	var rows []models.WorkingHours
	if err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND branch_id = ? AND date = ? AND published = ?", doctorID, branchID, date, true).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingGormRepository) ListBookingsForDay(
	ctx context.Context,
	doctorID uint,
	date string,
) ([]models.Booking, error) {

	var rows []models.Booking
	if err := r.db.WithContext(ctx).
		Select("id", "start_time", "end_time", "status").
		Where("doctor_id = ? AND date = ?", doctorID, date).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingGormRepository) ReplaceSchedules(
	ctx context.Context,
	doctorID uint,
	branchID uint,
	date string,
	rows []models.WorkingHours,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("doctor_id = ? AND branch_id = ? AND date = ?", doctorID, branchID, date).
			Delete(&models.WorkingHours{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// --------------------------------------------------
// Hold
// --------------------------------------------------

func (r *BookingGormRepository) CreateBooking(
	ctx context.Context,
	b *models.Booking,
) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookingGormRepository) DeleteBooking(
	ctx context.Context,
	bookingID uint,
) error {
	return r.db.WithContext(ctx).Delete(&models.Booking{}, bookingID).Error
}

func (r *BookingGormRepository) CreateDeposit(
	ctx context.Context,
	d *models.Deposit,
) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *BookingGormRepository) GetBookingByID(
	ctx context.Context,
	bookingID uint,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, bookingID).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingGormRepository) GetDepositByBookingID(
	ctx context.Context,
	bookingID uint,
) (*models.Deposit, error) {

	var d models.Deposit
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// --------------------------------------------------
// Transições
// --------------------------------------------------

func (r *BookingGormRepository) ApplyTransition(
	ctx context.Context,
	bookingID uint,
	t domain.Transition,
	s *domain.Settlement,
) (bool, error) {

	if err := domain.CanTransition(t.DepositFrom, t.DepositTo); err != nil {
		return false, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     string(t.DepositTo),
			"updated_at": time.Now(),
		}
		if s != nil {
			updates["paid_amount"] = s.PaidAmount
			updates["payment_id"] = s.PaymentID
			updates["paid_at"] = s.PaidAt
			if len(s.Raw) > 0 {
				updates["raw_payload"] = datatypes.JSON(s.Raw)
			}
		}

		res := tx.Model(&models.Deposit{}).
			Where("booking_id = ? AND status = ?", bookingID, string(t.DepositFrom)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNotApplied
		}

		// a reserva pode já ter sido alterada pela recepção; o depósito manda
		return tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, string(t.BookingFrom)).
			Updates(map[string]any{
				"status":     string(t.BookingTo),
				"updated_at": time.Now(),
			}).Error
	})

	if errors.Is(err, errNotApplied) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --------------------------------------------------
// Sweep
// --------------------------------------------------

func (r *BookingGormRepository) ListExpiredHolds(
	ctx context.Context,
	now time.Time,
) ([]models.Deposit, error) {

	var rows []models.Deposit
	if err := r.db.WithContext(ctx).
		Where("status = ? AND hold_expires_at < ?", string(domain.DepositNew), now.UTC()).
		Order("hold_expires_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingGormRepository) ListHoldsWithoutDeposit(
	ctx context.Context,
	createdBefore time.Time,
) ([]models.Booking, error) {

	var rows []models.Booking
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(domain.StatusOnlineHeld), createdBefore.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM deposits WHERE deposits.booking_id = bookings.id)").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingGormRepository) ExpireHoldWithoutDeposit(
	ctx context.Context,
	bookingID uint,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, string(domain.StatusOnlineHeld)).
		Where("NOT EXISTS (SELECT 1 FROM deposits WHERE deposits.booking_id = bookings.id)").
		Updates(map[string]any{
			"status":     string(domain.StatusOnlineExpired),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// --------------------------------------------------
// Painel
// --------------------------------------------------

func (r *BookingGormRepository) ListOnlineBookings(
	ctx context.Context,
	branchID uint,
	date string,
) ([]domain.OnlineBooking, error) {

	var bookings []models.Booking
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND date = ? AND status IN ?", branchID, date, []string{
			string(domain.StatusOnlineHeld),
			string(domain.StatusOnlineConfirmed),
			string(domain.StatusOnlineExpired),
		}).
		Order("start_time ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}

	out := make([]domain.OnlineBooking, 0, len(bookings))
	if len(bookings) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}

	var deposits []models.Deposit
	if err := r.db.WithContext(ctx).
		Where("booking_id IN ?", ids).
		Find(&deposits).Error; err != nil {
		return nil, err
	}

	byBooking := make(map[uint]*models.Deposit, len(deposits))
	for i := range deposits {
		byBooking[deposits[i].BookingID] = &deposits[i]
	}

	for _, b := range bookings {
		out = append(out, domain.OnlineBooking{
			Booking: b,
			Deposit: byBooking[b.ID],
		})
	}
	return out, nil
}

// --------------------------------------------------
// Faturas genéricas
// --------------------------------------------------

func (r *BookingGormRepository) GetGatewayInvoice(
	ctx context.Context,
	invoiceID string,
) (*models.GatewayInvoice, error) {

	var inv models.GatewayInvoice
	if err := r.db.WithContext(ctx).
		Where("id = ?", invoiceID).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *BookingGormRepository) SettleGatewayInvoice(
	ctx context.Context,
	invoiceID string,
	s *domain.Settlement,
) (bool, error) {

	updates := map[string]any{
		"status":     string(domain.DepositPaid),
		"updated_at": time.Now(),
	}
	if s != nil {
		updates["paid_amount"] = s.PaidAmount
		updates["payment_id"] = s.PaymentID
		updates["paid_at"] = s.PaidAt
		if len(s.Raw) > 0 {
			updates["raw_payload"] = datatypes.JSON(s.Raw)
		}
	}

	res := r.db.WithContext(ctx).
		Model(&models.GatewayInvoice{}).
		Where("id = ? AND status = ?", invoiceID, string(domain.DepositNew)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Compile-time check
var (
	_ domain.Repository        = (*BookingGormRepository)(nil)
	_ domain.InvoiceRepository = (*BookingGormRepository)(nil)
)
