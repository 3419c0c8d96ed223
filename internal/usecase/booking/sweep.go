package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/clinic-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/events"
)

type SweepResult struct {
	Checked  int
	Expired  int
	Orphaned int
}

// SweepExpired roda a conciliação para holds vencidos que ninguém consultou
// e expira reservas ONLINE_HELD que ficaram sem depósito.
type SweepExpired struct {
	repo       domain.Repository
	reconcile  *Reconcile
	audit      Auditor
	events     events.Publisher
	holdWindow time.Duration
	log        *zap.Logger

	now func() time.Time
}

func NewSweepExpired(
	repo domain.Repository,
	reconcile *Reconcile,
	audit Auditor,
	publisher events.Publisher,
	holdWindow time.Duration,
	log *zap.Logger,
) *SweepExpired {
	return &SweepExpired{
		repo:       repo,
		reconcile:  reconcile,
		audit:      audit,
		events:     publisher,
		holdWindow: holdWindow,
		log:        log,
		now:        time.Now,
	}
}

func (uc *SweepExpired) Execute(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := uc.now()

	// --------------------------------------------------
	// Holds com depósito vencido
	// --------------------------------------------------
	deposits, err := uc.repo.ListExpiredHolds(ctx, now)
	if err != nil {
		return res, err
	}

	for _, d := range deposits {
		res.Checked++
		out, err := uc.reconcile.Execute(ctx, d.BookingID, ModePoll)
		if err != nil {
			// gateway fora: fica para a próxima rodada
			uc.log.Warn("sweep reconcile failed", zap.Uint("booking_id", d.BookingID), zap.Error(err))
			continue
		}
		if out.Status == domain.PaymentExpired {
			res.Expired++
		}
	}

	// --------------------------------------------------
	// Reservas sem depósito (processo caiu no meio do hold)
	// --------------------------------------------------
	orphans, err := uc.repo.ListHoldsWithoutDeposit(ctx, now.Add(-uc.holdWindow))
	if err != nil {
		return res, err
	}

	for _, b := range orphans {
		ok, err := uc.repo.ExpireHoldWithoutDeposit(ctx, b.ID)
		if err != nil {
			uc.log.Warn("sweep orphan expire failed", zap.Uint("booking_id", b.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		res.Orphaned++

		bookingID := b.ID
		uc.audit.Dispatch(audit.Event{
			BranchID: b.BranchID,
			Action:   audit.ActionOnlineHoldExpired,
			Entity:   "booking",
			EntityID: &bookingID,
			Metadata: map[string]any{"reason": "no_deposit"},
		})
		publish(ctx, uc.events, uc.log, events.KeyBookingExpired, events.BookingEvent{
			BookingID:  b.ID,
			BranchID:   b.BranchID,
			DoctorID:   b.DoctorID,
			Date:       b.Date,
			StartTime:  b.StartTime,
			Status:     string(domain.StatusOnlineExpired),
			OccurredAt: now.UTC(),
		})
	}

	if res.Checked > 0 || res.Orphaned > 0 {
		uc.log.Info("expiry sweep finished",
			zap.Int("checked", res.Checked),
			zap.Int("expired", res.Expired),
			zap.Int("orphaned", res.Orphaned),
		)
	}
	return res, nil
}
