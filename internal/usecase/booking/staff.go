package booking

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
	"github.com/BruksfildServices01/clinic-scheduler/internal/timezone"
)

// ======================================================
// LIST ONLINE BOOKINGS
// ======================================================

type ListOnlineBookings struct {
	repo domain.Repository
}

func NewListOnlineBookings(repo domain.Repository) *ListOnlineBookings {
	return &ListOnlineBookings{repo: repo}
}

func (uc *ListOnlineBookings) Execute(
	ctx context.Context,
	branchID uint,
	date string,
) ([]domain.OnlineBooking, error) {

	if _, err := timezone.ParseDate(date, ""); err != nil {
		return nil, httperr.ErrValidation("invalid_date", "date must be YYYY-MM-DD")
	}
	return uc.repo.ListOnlineBookings(ctx, branchID, date)
}

// ======================================================
// PUBLISH SCHEDULE
// ======================================================

type ScheduleRow struct {
	StartTime  string
	EndTime    string
	BreakStart string
	BreakEnd   string
	Published  bool
}

type PublishScheduleInput struct {
	BranchID uint
	DoctorID uint
	UserID   *uint
	Date     string
	Rows     []ScheduleRow
}

// PublishSchedule substitui o expediente do médico na filial/data.
type PublishSchedule struct {
	repo  domain.Repository
	audit Auditor
}

func NewPublishSchedule(repo domain.Repository, audit Auditor) *PublishSchedule {
	return &PublishSchedule{repo: repo, audit: audit}
}

func (uc *PublishSchedule) Execute(
	ctx context.Context,
	in PublishScheduleInput,
) ([]models.WorkingHours, error) {

	if _, err := timezone.ParseDate(in.Date, ""); err != nil {
		return nil, httperr.ErrValidation("invalid_date", "date must be YYYY-MM-DD")
	}

	doctor, err := uc.repo.GetUserByID(ctx, in.DoctorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httperr.ErrNotFound("doctor_not_found")
	}
	if err != nil {
		return nil, err
	}
	if doctor.Role != models.RoleDoctor || doctor.BranchID != in.BranchID {
		return nil, httperr.ErrNotFound("doctor_not_found")
	}

	rows := make([]models.WorkingHours, 0, len(in.Rows))
	for _, r := range in.Rows {
		if err := validateScheduleRow(r); err != nil {
			return nil, err
		}
		rows = append(rows, models.WorkingHours{
			DoctorID:   in.DoctorID,
			BranchID:   in.BranchID,
			Date:       in.Date,
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			BreakStart: r.BreakStart,
			BreakEnd:   r.BreakEnd,
			Published:  r.Published,
		})
	}

	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			if domain.Overlaps(rows[i].StartTime, rows[i].EndTime, rows[j].StartTime, rows[j].EndTime) {
				return nil, httperr.ErrValidation("schedule_overlap", rows[i].StartTime+"-"+rows[i].EndTime)
			}
		}
	}

	if err := uc.repo.ReplaceSchedules(ctx, in.DoctorID, in.BranchID, in.Date, rows); err != nil {
		return nil, err
	}

	doctorID := in.DoctorID
	uc.audit.Dispatch(audit.Event{
		BranchID: in.BranchID,
		UserID:   in.UserID,
		Action:   audit.ActionScheduleReplaced,
		Entity:   "doctor",
		EntityID: &doctorID,
		Metadata: map[string]any{"date": in.Date, "rows": len(rows)},
	})

	return rows, nil
}

func validateScheduleRow(r ScheduleRow) error {
	if _, err := timezone.ParseHM(r.StartTime); err != nil {
		return httperr.ErrValidation("invalid_time", "start must be HH:MM")
	}
	if _, err := timezone.ParseHM(r.EndTime); err != nil {
		return httperr.ErrValidation("invalid_time", "end must be HH:MM")
	}
	if r.StartTime >= r.EndTime {
		return httperr.ErrValidation("invalid_time", "start must be before end")
	}

	if r.BreakStart == "" && r.BreakEnd == "" {
		return nil
	}
	if _, err := timezone.ParseHM(r.BreakStart); err != nil {
		return httperr.ErrValidation("invalid_break", "breakStart must be HH:MM")
	}
	if _, err := timezone.ParseHM(r.BreakEnd); err != nil {
		return httperr.ErrValidation("invalid_break", "breakEnd must be HH:MM")
	}
	if r.BreakStart >= r.BreakEnd || r.BreakStart < r.StartTime || r.BreakEnd > r.EndTime {
		return httperr.ErrValidation("invalid_break", "break must be inside working hours")
	}
	return nil
}
