package booking

import (
	"context"
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
)

// ======================================================
// CALLBACK DE RESERVA
// ======================================================

// HandleBookingCallback trata o webhook da reserva. O corpo do callback não
// tem valor: o token autoriza e o pagamento é sempre reconsultado no gateway.
// Nenhum erro sobe; tudo é logado.
type HandleBookingCallback struct {
	repo      domain.Repository
	reconcile *Reconcile
	audit     Auditor
	log       *zap.Logger
}

func NewHandleBookingCallback(
	repo domain.Repository,
	reconcile *Reconcile,
	audit Auditor,
	log *zap.Logger,
) *HandleBookingCallback {
	return &HandleBookingCallback{
		repo:      repo,
		reconcile: reconcile,
		audit:     audit,
		log:       log,
	}
}

func (uc *HandleBookingCallback) Execute(ctx context.Context, rawBookingID, token string) {
	rawBookingID = strings.TrimSpace(rawBookingID)
	token = strings.TrimSpace(token)
	if rawBookingID == "" || token == "" {
		uc.log.Info("booking callback ignored, missing params")
		return
	}

	id, err := strconv.ParseUint(rawBookingID, 10, 64)
	if err != nil || id == 0 {
		uc.log.Info("booking callback ignored, bad booking id", zap.String("booking_id", rawBookingID))
		return
	}
	bookingID := uint(id)

	dep, err := uc.repo.GetDepositByBookingID(ctx, bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		uc.log.Info("booking callback ignored, no deposit", zap.Uint("booking_id", bookingID))
		return
	}
	if err != nil {
		uc.log.Error("booking callback load failed", zap.Uint("booking_id", bookingID), zap.Error(err))
		return
	}

	if subtle.ConstantTimeCompare([]byte(dep.CallbackToken), []byte(token)) != 1 {
		uc.log.Warn("booking callback token mismatch", zap.Uint("booking_id", bookingID))
		uc.audit.Dispatch(audit.Event{
			BranchID: dep.BranchID,
			Action:   audit.ActionCallbackTokenMismatch,
			Entity:   "booking",
			EntityID: &bookingID,
		})
		return
	}

	res, err := uc.reconcile.Execute(ctx, bookingID, ModeWebhook)
	if err != nil {
		uc.log.Warn("booking callback reconcile failed", zap.Uint("booking_id", bookingID), zap.Error(err))
		return
	}

	uc.log.Info("booking callback reconciled",
		zap.Uint("booking_id", bookingID),
		zap.String("status", string(res.Status)),
	)
}

// ======================================================
// CALLBACK GENÉRICO
// ======================================================

// ReconcileGatewayInvoice confirma faturas genéricas pelo invoice_id do
// gateway. Não há token: o payload nunca é confiável e só a consulta conta.
type ReconcileGatewayInvoice struct {
	repo  domain.InvoiceRepository
	gw    Gateway
	audit Auditor
	log   *zap.Logger
}

func NewReconcileGatewayInvoice(
	repo domain.InvoiceRepository,
	gw Gateway,
	audit Auditor,
	log *zap.Logger,
) *ReconcileGatewayInvoice {
	return &ReconcileGatewayInvoice{
		repo:  repo,
		gw:    gw,
		audit: audit,
		log:   log,
	}
}

func (uc *ReconcileGatewayInvoice) Execute(ctx context.Context, invoiceID string) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		uc.log.Info("gateway callback ignored, missing invoice id")
		return
	}

	inv, err := uc.repo.GetGatewayInvoice(ctx, invoiceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		uc.log.Info("gateway callback ignored, unknown invoice", zap.String("invoice_id", invoiceID))
		return
	}
	if err != nil {
		uc.log.Error("gateway callback load failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		return
	}
	if inv.Status != string(domain.DepositNew) {
		return
	}

	check, err := uc.gw.CheckInvoicePaid(ctx, invoiceID)
	if err != nil {
		uc.log.Warn("gateway callback check failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		return
	}
	if !check.Paid || check.PaidAmount < inv.Amount {
		return
	}

	applied, err := uc.repo.SettleGatewayInvoice(ctx, invoiceID, &domain.Settlement{
		PaidAmount: check.PaidAmount,
		PaymentID:  check.PaymentID,
		PaidAt:     check.PaidAt,
		Raw:        check.Raw,
	})
	if err != nil {
		uc.log.Error("gateway invoice settle failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		return
	}
	if !applied {
		return
	}

	uc.audit.Dispatch(audit.Event{
		BranchID: inv.BranchID,
		Action:   audit.ActionGatewayInvoicePaid,
		Entity:   "gateway_invoice",
		Metadata: map[string]any{
			"invoiceId":  invoiceID,
			"paidAmount": check.PaidAmount,
			"paymentId":  check.PaymentID,
		},
	})
}
