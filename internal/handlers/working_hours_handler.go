package handlers

import (
	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/clinic-scheduler/internal/middleware"
	"github.com/BruksfildServices01/clinic-scheduler/internal/usecase/booking"
)

type WorkingHoursHandler struct {
	repo    domain.Repository
	publish *booking.PublishSchedule
}

func NewWorkingHoursHandler(repo domain.Repository, publish *booking.PublishSchedule) *WorkingHoursHandler {
	return &WorkingHoursHandler{repo: repo, publish: publish}
}

type ScheduleRowRequest struct {
	StartTime  string `json:"start_time" binding:"required,hhmm"`
	EndTime    string `json:"end_time" binding:"required,hhmm"`
	BreakStart string `json:"break_start" binding:"hhmm"`
	BreakEnd   string `json:"break_end" binding:"hhmm"`
	Published  bool   `json:"published"`
}

type WorkingHoursUpdateRequest struct {
	Date string               `json:"date" binding:"required,ymd"`
	Rows []ScheduleRowRequest `json:"rows" binding:"dive"`
}

func (h *WorkingHoursHandler) Get(c *gin.Context) {
	branchID := c.MustGet(middleware.ContextBranchID).(uint)

	doctorID, ok := parseUintParam(c.Param("doctorId"))
	if !ok {
		httperr.BadRequest(c, "invalid_doctor_id", "Médico inválido.")
		return
	}

	date := c.Query("date")
	if date == "" {
		httperr.BadRequest(c, "missing_date", "Data obrigatória.")
		return
	}

	hours, err := h.repo.ListSchedules(c.Request.Context(), doctorID, branchID, date)
	if err != nil {
		httperr.Internal(c, "failed_to_get_working_hours", "Erro ao buscar expediente.")
		return
	}

	httpresp.List(c, hours)
}

func (h *WorkingHoursHandler) Update(c *gin.Context) {
	branchID := c.MustGet(middleware.ContextBranchID).(uint)
	userID := c.MustGet(middleware.ContextUserID).(uint)

	doctorID, ok := parseUintParam(c.Param("doctorId"))
	if !ok {
		httperr.BadRequest(c, "invalid_doctor_id", "Médico inválido.")
		return
	}

	var req WorkingHoursUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Dados inválidos.")
		return
	}

	rows := make([]booking.ScheduleRow, 0, len(req.Rows))
	for _, r := range req.Rows {
		rows = append(rows, booking.ScheduleRow{
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			BreakStart: r.BreakStart,
			BreakEnd:   r.BreakEnd,
			Published:  r.Published,
		})
	}

	saved, err := h.publish.Execute(c.Request.Context(), booking.PublishScheduleInput{
		BranchID: branchID,
		DoctorID: doctorID,
		UserID:   &userID,
		Date:     req.Date,
		Rows:     rows,
	})
	if err != nil {
		_ = c.Error(err)
		httperr.FromError(c, err, "Erro ao salvar expediente.")
		return
	}

	httpresp.List(c, saved)
}
