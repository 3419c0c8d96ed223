package booking

import (
	"context"
	"time"

	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
)

// Settlement são os dados de pagamento gravados junto com a transição.
type Settlement struct {
	PaidAmount int64
	PaymentID  string
	PaidAt     *time.Time
	Raw        []byte
}

// OnlineBooking é a linha do painel da recepção.
type OnlineBooking struct {
	Booking models.Booking
	Deposit *models.Deposit
}

type Repository interface {
	// -------- Branch / Doctor --------
	GetBranchByID(
		ctx context.Context,
		id uint,
	) (*models.Branch, error)

	GetUserByID(
		ctx context.Context,
		id uint,
	) (*models.User, error)

	// -------- Patient --------
	GetOrCreatePlaceholderPatient(
		ctx context.Context,
		branchID uint,
	) (*models.Patient, error)

	// -------- Availability --------
	ListSchedules(
		ctx context.Context,
		doctorID uint,
		branchID uint,
		date string,
	) ([]models.WorkingHours, error)

	ListBookingsForDay(
		ctx context.Context,
		doctorID uint,
		date string,
	) ([]models.Booking, error)

	ReplaceSchedules(
		ctx context.Context,
		doctorID uint,
		branchID uint,
		date string,
		rows []models.WorkingHours,
	) error

	// -------- Hold --------
	CreateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	DeleteBooking(
		ctx context.Context,
		bookingID uint,
	) error

	CreateDeposit(
		ctx context.Context,
		d *models.Deposit,
	) error

	GetBookingByID(
		ctx context.Context,
		bookingID uint,
	) (*models.Booking, error)

	GetDepositByBookingID(
		ctx context.Context,
		bookingID uint,
	) (*models.Deposit, error)

	// -------- Transições --------

	// ApplyTransition grava depósito + reserva numa transação, condicionada
	// ao status de origem. applied=false quando outra chamada já transicionou.
	ApplyTransition(
		ctx context.Context,
		bookingID uint,
		t Transition,
		s *Settlement,
	) (applied bool, err error)

	// -------- Sweep --------
	ListExpiredHolds(
		ctx context.Context,
		now time.Time,
	) ([]models.Deposit, error)

	ListHoldsWithoutDeposit(
		ctx context.Context,
		createdBefore time.Time,
	) ([]models.Booking, error)

	ExpireHoldWithoutDeposit(
		ctx context.Context,
		bookingID uint,
	) (bool, error)

	// -------- Painel --------
	ListOnlineBookings(
		ctx context.Context,
		branchID uint,
		date string,
	) ([]OnlineBooking, error)
}

// InvoiceRepository cobre as faturas genéricas do gateway.
type InvoiceRepository interface {
	GetGatewayInvoice(
		ctx context.Context,
		invoiceID string,
	) (*models.GatewayInvoice, error)

	SettleGatewayInvoice(
		ctx context.Context,
		invoiceID string,
		s *Settlement,
	) (bool, error)
}
