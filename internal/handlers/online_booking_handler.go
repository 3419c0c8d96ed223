package handlers

import (
	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/dto"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/clinic-scheduler/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type OnlineBookingHandler struct {
	createHold   *booking.CreateHold
	reconcile    *booking.Reconcile
	availability *booking.GetAvailability
}

func NewOnlineBookingHandler(
	createHold *booking.CreateHold,
	reconcile *booking.Reconcile,
	availability *booking.GetAvailability,
) *OnlineBookingHandler {
	return &OnlineBookingHandler{
		createHold:   createHold,
		reconcile:    reconcile,
		availability: availability,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateHoldRequest struct {
	BranchID  uint   `json:"branchId" binding:"required"`
	DoctorID  uint   `json:"doctorId" binding:"required"`
	Date      string `json:"date" binding:"required,ymd"`
	StartTime string `json:"startTime" binding:"required,hhmm"`
	EndTime   string `json:"endTime" binding:"required,hhmm"`

	CustomerName  string `json:"customerName" binding:"required,max=100"`
	CustomerPhone string `json:"customerPhone" binding:"required,max=20"`
	CustomerEmail string `json:"customerEmail" binding:"omitempty,email,max=100"`
	Note          string `json:"note" binding:"max=500"`
}

type AvailabilityQuery struct {
	BranchID    uint   `form:"branchId" binding:"required"`
	DoctorID    uint   `form:"doctorId" binding:"required"`
	Date        string `form:"date" binding:"required,ymd"`
	DurationMin int    `form:"durationMin"`
}

// ======================================================
// HOLD
// ======================================================

func (h *OnlineBookingHandler) Hold(c *gin.Context) {
	var req CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Dados inválidos.")
		return
	}

	out, err := h.createHold.Execute(c.Request.Context(), booking.CreateHoldInput{
		BranchID:  req.BranchID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Customer: domain.Customer{
			Name:  req.CustomerName,
			Phone: req.CustomerPhone,
			Email: req.CustomerEmail,
			Note:  req.Note,
		},
	})
	if err != nil {
		_ = c.Error(err)
		httperr.FromError(c, err, holdErrorMessage(err))
		return
	}

	httpresp.Created(c, dto.NewHoldResponse(out))
}

func holdErrorMessage(err error) string {
	switch {
	case httperr.IsBusiness(err, booking.CodeSlotTaken):
		return "Horário indisponível."
	case httperr.IsBusiness(err, booking.CodeScheduleViolation):
		return "Horário fora do expediente do médico."
	case httperr.IsBusiness(err, booking.CodeGatewayInvoice):
		return "Não foi possível gerar a cobrança. Tente novamente."
	}
	if kind, ok := httperr.KindOf(err); ok && kind == httperr.KindValidation {
		return "Dados inválidos."
	}
	return "Erro ao criar reserva."
}

// ======================================================
// PAYMENT STATUS (POLL)
// ======================================================

func (h *OnlineBookingHandler) PaymentStatus(c *gin.Context) {
	bookingID, ok := parseUintParam(c.Param("bookingId"))
	if !ok {
		httperr.BadRequest(c, "invalid_booking_id", "Reserva inválida.")
		return
	}

	res, err := h.reconcile.Execute(c.Request.Context(), bookingID, booking.ModePoll)
	if err != nil {
		_ = c.Error(err)
		httperr.FromError(c, err, paymentErrorMessage(err))
		return
	}

	httpresp.OK(c, dto.NewPaymentStatusResponse(res))
}

func paymentErrorMessage(err error) string {
	switch {
	case httperr.IsBusiness(err, booking.CodeDepositNotFound):
		return "Depósito não encontrado."
	case httperr.IsBusiness(err, booking.CodeGatewayCheckFailed):
		return "Não foi possível consultar o pagamento. Tente novamente."
	}
	return "Erro ao consultar pagamento."
}

// ======================================================
// AVAILABILITY
// ======================================================

func (h *OnlineBookingHandler) Availability(c *gin.Context) {
	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(c, "missing_params", "Filial, médico e data obrigatórios.")
		return
	}
	if q.DurationMin == 0 {
		q.DurationMin = 30
	}

	slots, err := h.availability.Execute(c.Request.Context(), booking.AvailabilityInput{
		BranchID:    q.BranchID,
		DoctorID:    q.DoctorID,
		Date:        q.Date,
		DurationMin: q.DurationMin,
	})
	if err != nil {
		_ = c.Error(err)
		httperr.FromError(c, err, "Erro ao calcular disponibilidade.")
		return
	}

	httpresp.List(c, slots)
}
