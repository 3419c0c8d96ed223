package booking

import (
	"context"

	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/timezone"
)

// ======================================================
// CHECK SLOT
// ======================================================

type CheckSlot struct {
	repo domain.Repository
}

func NewCheckSlot(repo domain.Repository) *CheckSlot {
	return &CheckSlot{repo: repo}
}

// Execute é somente leitura.
func (uc *CheckSlot) Execute(
	ctx context.Context,
	q domain.SlotQuery,
) (domain.SlotReason, error) {

	schedules, err := uc.repo.ListSchedules(ctx, q.DoctorID, q.BranchID, q.Date)
	if err != nil {
		return "", err
	}

	sameDay, err := uc.repo.ListBookingsForDay(ctx, q.DoctorID, q.Date)
	if err != nil {
		return "", err
	}

	return domain.Evaluate(q, schedules, sameDay), nil
}

// ======================================================
// AVAILABILITY
// ======================================================

type AvailabilityInput struct {
	BranchID    uint
	DoctorID    uint
	Date        string
	DurationMin int
}

type GetAvailability struct {
	repo domain.Repository
}

func NewGetAvailability(repo domain.Repository) *GetAvailability {
	return &GetAvailability{repo: repo}
}

func (uc *GetAvailability) Execute(
	ctx context.Context,
	in AvailabilityInput,
) ([]domain.TimeSlot, error) {

	if in.DurationMin <= 0 || in.DurationMin > 24*60 {
		return nil, httperr.ErrValidation("invalid_duration", "durationMin must be between 1 and 1440")
	}

	branch, err := uc.repo.GetBranchByID(ctx, in.BranchID)
	if err != nil {
		return nil, httperr.ErrValidation("branch_not_found", "")
	}
	if _, err := timezone.ParseDate(in.Date, branch.Timezone); err != nil {
		return nil, httperr.ErrValidation("invalid_date", "date must be YYYY-MM-DD")
	}

	schedules, err := uc.repo.ListSchedules(ctx, in.DoctorID, in.BranchID, in.Date)
	if err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return []domain.TimeSlot{}, nil
	}

	sameDay, err := uc.repo.ListBookingsForDay(ctx, in.DoctorID, in.Date)
	if err != nil {
		return nil, err
	}

	return domain.FreeSlots(schedules, sameDay, in.DurationMin, true), nil
}
