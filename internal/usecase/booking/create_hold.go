package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/events"
	"github.com/BruksfildServices01/clinic-scheduler/internal/gateway"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/lock"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
	"github.com/BruksfildServices01/clinic-scheduler/internal/timezone"
)

const (
	CodeSlotTaken          = "SLOT_TAKEN"
	CodeScheduleViolation  = "SCHEDULE_VIOLATION"
	CodeGatewayInvoice     = "gateway_invoice_failed"
	CodeGatewayCheckFailed = "gateway_check_failed"
	CodeDepositNotFound    = "deposit_not_found"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

type CreateHoldInput struct {
	BranchID  uint
	DoctorID  uint
	Date      string
	StartTime string
	EndTime   string
	Customer  domain.Customer
}

type CreateHoldOutput struct {
	BookingID        uint
	ExpiresAt        time.Time
	GatewayInvoiceID string
	QRText           string
	QRImage          string
	ShortURL         string
	URLs             []gateway.DeepLink
}

type HoldSettings struct {
	DepositAmount int64
	HoldWindow    time.Duration
	CallbackBase  string
	LockTTL       time.Duration
}

// ======================================================
// USE CASE
// ======================================================

type CreateHold struct {
	repo    domain.Repository
	checker *CheckSlot
	gw      Gateway
	locker  lock.Locker
	audit   Auditor
	events  events.Publisher
	cfg     HoldSettings
	log     *zap.Logger

	now      func() time.Time
	newToken func() (string, error)
}

func NewCreateHold(
	repo domain.Repository,
	gw Gateway,
	locker lock.Locker,
	audit Auditor,
	publisher events.Publisher,
	cfg HoldSettings,
	log *zap.Logger,
) *CreateHold {
	return &CreateHold{
		repo:     repo,
		checker:  NewCheckSlot(repo),
		gw:       gw,
		locker:   locker,
		audit:    audit,
		events:   publisher,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		newToken: randomToken,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateHold) Execute(
	ctx context.Context,
	in CreateHoldInput,
) (*CreateHoldOutput, error) {

	// --------------------------------------------------
	// 1. Validação
	// --------------------------------------------------
	if err := uc.validate(ctx, in); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 2. Checagem + inserção sob lock (médico + dia)
	// --------------------------------------------------
	b, err := uc.reserve(ctx, in)
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 3. Token de callback + referência
	// --------------------------------------------------
	token, err := uc.newToken()
	if err != nil {
		uc.rollback(ctx, b, "token_failed")
		return nil, err
	}

	now := uc.now()
	ref := domain.InvoiceRef(b.ID, now.UnixMilli())

	// --------------------------------------------------
	// 4. Fatura no gateway
	// --------------------------------------------------
	inv, err := uc.gw.CreateInvoice(ctx, gateway.InvoiceRequest{
		Reference:   ref,
		Amount:      uc.cfg.DepositAmount,
		Description: "Booking deposit " + ref,
		CallbackURL: uc.callbackURL(b.ID, token),
	})
	if err != nil {
		uc.log.Warn("hold invoice failed",
			zap.Uint("booking_id", b.ID),
			zap.Error(err),
		)
		uc.rollback(ctx, b, "invoice_failed")
		return nil, httperr.ErrGateway(CodeGatewayInvoice, err)
	}

	// --------------------------------------------------
	// 5. Depósito
	// --------------------------------------------------
	expiresAt := now.Add(uc.cfg.HoldWindow).UTC()

	dep := &models.Deposit{
		BookingID:        b.ID,
		BranchID:         in.BranchID,
		Amount:           uc.cfg.DepositAmount,
		Status:           string(domain.DepositNew),
		HoldExpiresAt:    expiresAt,
		GatewayInvoiceID: inv.InvoiceID,
		InvoiceRef:       ref,
		CallbackToken:    token,
	}
	if err := uc.repo.CreateDeposit(ctx, dep); err != nil {
		uc.log.Error("hold deposit insert failed", zap.Uint("booking_id", b.ID), zap.Error(err))
		uc.cancelInvoice(ctx, inv.InvoiceID)
		uc.rollback(ctx, b, "deposit_failed")
		return nil, err
	}

	// --------------------------------------------------
	// 6. Auditoria + evento
	// --------------------------------------------------
	uc.audit.Dispatch(audit.Event{
		BranchID: in.BranchID,
		Action:   audit.ActionOnlineHoldCreated,
		Entity:   "booking",
		EntityID: &b.ID,
		Metadata: map[string]any{
			"invoiceRef":       ref,
			"gatewayInvoiceId": inv.InvoiceID,
			"expiresAt":        expiresAt,
		},
	})

	publish(ctx, uc.events, uc.log, events.KeyBookingHeld, events.BookingEvent{
		BookingID:  b.ID,
		BranchID:   b.BranchID,
		DoctorID:   b.DoctorID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		Status:     b.Status,
		OccurredAt: now.UTC(),
	})

	return &CreateHoldOutput{
		BookingID:        b.ID,
		ExpiresAt:        expiresAt,
		GatewayInvoiceID: inv.InvoiceID,
		QRText:           inv.QRText,
		QRImage:          inv.QRImage,
		ShortURL:         inv.ShortURL,
		URLs:             inv.URLs,
	}, nil
}

func (uc *CreateHold) validate(ctx context.Context, in CreateHoldInput) error {
	if in.BranchID == 0 || in.DoctorID == 0 {
		return httperr.ErrValidation("invalid_input", "branchId and doctorId are required")
	}
	if _, err := timezone.ParseHM(in.StartTime); err != nil {
		return httperr.ErrValidation("invalid_time", "startTime must be HH:MM")
	}
	if _, err := timezone.ParseHM(in.EndTime); err != nil {
		return httperr.ErrValidation("invalid_time", "endTime must be HH:MM")
	}
	if in.StartTime >= in.EndTime {
		return httperr.ErrValidation("invalid_time", "startTime must be before endTime")
	}

	branch, err := uc.repo.GetBranchByID(ctx, in.BranchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.ErrValidation("branch_not_found", "")
	}
	if err != nil {
		return err
	}
	if _, err := timezone.ParseDate(in.Date, branch.Timezone); err != nil {
		return httperr.ErrValidation("invalid_date", "date must be YYYY-MM-DD")
	}

	doctor, err := uc.repo.GetUserByID(ctx, in.DoctorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.ErrValidation("doctor_not_found", "")
	}
	if err != nil {
		return err
	}
	if doctor.Role != models.RoleDoctor {
		return httperr.ErrValidation("not_a_doctor", "")
	}
	if doctor.BranchID != in.BranchID {
		return httperr.ErrValidation("doctor_not_in_branch", "")
	}
	return nil
}

func (uc *CreateHold) reserve(ctx context.Context, in CreateHoldInput) (*models.Booking, error) {
	release, err := uc.locker.Acquire(ctx, lock.SlotKey(in.DoctorID, in.Date), uc.cfg.LockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, httperr.ErrConflict(CodeSlotTaken)
	}
	if err != nil {
		return nil, err
	}
	defer release()

	reason, err := uc.checker.Execute(ctx, domain.SlotQuery{
		DoctorID:  in.DoctorID,
		BranchID:  in.BranchID,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Online:    true,
	})
	if err != nil {
		return nil, err
	}
	switch reason {
	case domain.SlotAvailable:
	case domain.ReasonSlotTaken:
		return nil, httperr.ErrConflict(CodeSlotTaken)
	case domain.ReasonNoSchedule, domain.ReasonOutsideWorkingHrs:
		return nil, httperr.ErrValidation(CodeScheduleViolation, string(reason))
	}

	patient, err := uc.repo.GetOrCreatePlaceholderPatient(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		BranchID:  in.BranchID,
		DoctorID:  in.DoctorID,
		PatientID: patient.ID,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Status:    string(domain.StatusOnlineHeld),
		Note:      domain.EncodeNote(in.Customer),
	}
	if err := uc.repo.CreateBooking(ctx, b); err != nil {
		if httperr.IsUniqueViolation(err) {
			return nil, httperr.ErrConflict(CodeSlotTaken)
		}
		return nil, err
	}
	return b, nil
}

// rollback remove a reserva recém-criada; falha aqui só é logada.
func (uc *CreateHold) rollback(ctx context.Context, b *models.Booking, reason string) {
	rctx := context.WithoutCancel(ctx)
	if err := uc.repo.DeleteBooking(rctx, b.ID); err != nil {
		uc.log.Error("hold rollback failed",
			zap.Uint("booking_id", b.ID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}

	uc.audit.Dispatch(audit.Event{
		BranchID: b.BranchID,
		Action:   audit.ActionOnlineHoldRolledBack,
		Entity:   "booking",
		EntityID: &b.ID,
		Metadata: map[string]any{"reason": reason},
	})
}

func (uc *CreateHold) cancelInvoice(ctx context.Context, invoiceID string) {
	if err := uc.gw.CancelInvoice(context.WithoutCancel(ctx), invoiceID); err != nil {
		uc.log.Warn("invoice cancel failed", zap.String("invoice_id", invoiceID), zap.Error(err))
	}
}

func (uc *CreateHold) callbackURL(bookingID uint, token string) string {
	q := url.Values{}
	q.Set("bookingId", strconv.FormatUint(uint64(bookingID), 10))
	q.Set("token", token)
	return uc.cfg.CallbackBase + "/gateway/booking/callback?" + q.Encode()
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func publish(ctx context.Context, p events.Publisher, log *zap.Logger, key string, ev events.BookingEvent) {
	if err := p.Publish(context.WithoutCancel(ctx), key, ev); err != nil {
		log.Warn("event publish failed", zap.String("key", key), zap.Uint("booking_id", ev.BookingID), zap.Error(err))
	}
}
