package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-scheduler/internal/archive"
	"github.com/BruksfildServices01/clinic-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/events"
	"github.com/BruksfildServices01/clinic-scheduler/internal/gateway"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
)

// Mode define se a conciliação pode expirar o hold.
type Mode int

const (
	// ModePoll: consulta do cliente/recepção ou sweep; aplica expiração.
	ModePoll Mode = iota
	// ModeWebhook: callback do gateway; só confirma.
	ModeWebhook
)

type ReconcileResult struct {
	Status        domain.PaymentState
	BookingStatus domain.Status
	ExpiresAt     *time.Time
}

// ======================================================
// USE CASE
// ======================================================

type Reconcile struct {
	repo    domain.Repository
	gw      Gateway
	audit   Auditor
	events  events.Publisher
	archive archive.Store
	log     *zap.Logger

	now func() time.Time
}

func NewReconcile(
	repo domain.Repository,
	gw Gateway,
	audit Auditor,
	publisher events.Publisher,
	store archive.Store,
	log *zap.Logger,
) *Reconcile {
	return &Reconcile{
		repo:    repo,
		gw:      gw,
		audit:   audit,
		events:  publisher,
		archive: store,
		log:     log,
		now:     time.Now,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *Reconcile) Execute(
	ctx context.Context,
	bookingID uint,
	mode Mode,
) (*ReconcileResult, error) {

	dep, err := uc.loadDeposit(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	status, err := domain.ParseDepositStatus(dep.Status)
	if err != nil {
		return nil, err
	}

	// estado terminal: nada mais muda, nem consulta o gateway
	if status.IsTerminal() {
		return uc.result(ctx, dep)
	}

	check, err := uc.gw.CheckInvoicePaid(ctx, dep.GatewayInvoiceID)
	if err != nil {
		uc.log.Warn("payment check failed",
			zap.Uint("booking_id", bookingID),
			zap.String("invoice_id", dep.GatewayInvoiceID),
			zap.Error(err),
		)
		return nil, httperr.ErrGateway(CodeGatewayCheckFailed, err)
	}

	if check.Paid && check.PaidAmount >= dep.Amount {
		if err := uc.confirm(ctx, dep, check); err != nil {
			return nil, err
		}
		return uc.reload(ctx, bookingID)
	}

	if mode == ModePoll && uc.now().After(dep.HoldExpiresAt) {
		if err := uc.expire(ctx, dep); err != nil {
			return nil, err
		}
		return uc.reload(ctx, bookingID)
	}

	return uc.result(ctx, dep)
}

func (uc *Reconcile) loadDeposit(ctx context.Context, bookingID uint) (*models.Deposit, error) {
	dep, err := uc.repo.GetDepositByBookingID(ctx, bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httperr.ErrNotFound(CodeDepositNotFound)
	}
	return dep, err
}

func (uc *Reconcile) confirm(ctx context.Context, dep *models.Deposit, check *gateway.PaymentCheck) error {
	applied, err := uc.repo.ApplyTransition(ctx, dep.BookingID, domain.TransitionConfirm, &domain.Settlement{
		PaidAmount: check.PaidAmount,
		PaymentID:  check.PaymentID,
		PaidAt:     check.PaidAt,
		Raw:        check.Raw,
	})
	if err != nil {
		return err
	}
	if !applied {
		// outra chamada concorrente já transicionou
		return nil
	}

	uc.log.Info("online hold confirmed",
		zap.Uint("booking_id", dep.BookingID),
		zap.Int64("paid_amount", check.PaidAmount),
		zap.String("payment_id", check.PaymentID),
	)

	uc.audit.Dispatch(audit.Event{
		BranchID: dep.BranchID,
		Action:   audit.ActionOnlineHoldConfirmed,
		Entity:   "booking",
		EntityID: &dep.BookingID,
		Metadata: map[string]any{
			"paidAmount": check.PaidAmount,
			"paymentId":  check.PaymentID,
		},
	})

	if len(check.Raw) > 0 {
		key := archive.ReceiptKey(dep.BookingID, check.PaymentID)
		if err := uc.archive.Put(context.WithoutCancel(ctx), key, check.Raw); err != nil {
			uc.log.Warn("receipt archive failed", zap.String("key", key), zap.Error(err))
		}
	}

	uc.publishTransition(ctx, dep.BookingID, events.KeyBookingConfirmed, check.PaidAmount, check.PaymentID)
	return nil
}

func (uc *Reconcile) expire(ctx context.Context, dep *models.Deposit) error {
	if dep.GatewayInvoiceID != "" {
		if err := uc.gw.CancelInvoice(ctx, dep.GatewayInvoiceID); err != nil {
			uc.log.Warn("invoice cancel failed",
				zap.Uint("booking_id", dep.BookingID),
				zap.String("invoice_id", dep.GatewayInvoiceID),
				zap.Error(err),
			)
		}
	}

	applied, err := uc.repo.ApplyTransition(ctx, dep.BookingID, domain.TransitionExpire, nil)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	uc.log.Info("online hold expired", zap.Uint("booking_id", dep.BookingID))

	uc.audit.Dispatch(audit.Event{
		BranchID: dep.BranchID,
		Action:   audit.ActionOnlineHoldExpired,
		Entity:   "booking",
		EntityID: &dep.BookingID,
		Metadata: map[string]any{"holdExpiresAt": dep.HoldExpiresAt},
	})

	uc.publishTransition(ctx, dep.BookingID, events.KeyBookingExpired, 0, "")
	return nil
}

func (uc *Reconcile) publishTransition(ctx context.Context, bookingID uint, key string, paid int64, paymentID string) {
	b, err := uc.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		uc.log.Warn("event skipped, booking not loaded", zap.Uint("booking_id", bookingID), zap.Error(err))
		return
	}
	publish(ctx, uc.events, uc.log, key, events.BookingEvent{
		BookingID:  b.ID,
		BranchID:   b.BranchID,
		DoctorID:   b.DoctorID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		Status:     b.Status,
		PaidAmount: paid,
		PaymentID:  paymentID,
		OccurredAt: uc.now().UTC(),
	})
}

func (uc *Reconcile) reload(ctx context.Context, bookingID uint) (*ReconcileResult, error) {
	dep, err := uc.loadDeposit(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return uc.result(ctx, dep)
}

func (uc *Reconcile) result(ctx context.Context, dep *models.Deposit) (*ReconcileResult, error) {
	b, err := uc.repo.GetBookingByID(ctx, dep.BookingID)
	if err != nil {
		return nil, err
	}

	status, err := domain.ParseDepositStatus(dep.Status)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{
		Status:        domain.StateOf(status),
		BookingStatus: domain.Status(b.Status),
	}
	if status == domain.DepositNew {
		exp := dep.HoldExpiresAt
		res.ExpiresAt = &exp
	}
	return res, nil
}
