package handlers

import (
	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/dto"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/clinic-scheduler/internal/middleware"
	"github.com/BruksfildServices01/clinic-scheduler/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type StaffBookingHandler struct {
	repo      domain.Repository
	list      *booking.ListOnlineBookings
	reconcile *booking.Reconcile
}

func NewStaffBookingHandler(
	repo domain.Repository,
	list *booking.ListOnlineBookings,
	reconcile *booking.Reconcile,
) *StaffBookingHandler {
	return &StaffBookingHandler{
		repo:      repo,
		list:      list,
		reconcile: reconcile,
	}
}

// ======================================================
// LIST
// ======================================================

func (h *StaffBookingHandler) ListOnline(c *gin.Context) {
	branchID := c.MustGet(middleware.ContextBranchID).(uint)

	date := c.Query("date")
	if date == "" {
		branch, err := h.repo.GetBranchByID(c.Request.Context(), branchID)
		if err != nil {
			httperr.Internal(c, "branch_not_found", "Filial não encontrada.")
			return
		}
		date = todayInBranch(branch)
	}

	rows, err := h.list.Execute(c.Request.Context(), branchID, date)
	if err != nil {
		_ = c.Error(err)
		httperr.FromError(c, err, "Erro ao listar reservas online.")
		return
	}

	httpresp.List(c, dto.NewOnlineBookingList(rows))
}

// ======================================================
// RECONCILE MANUAL
// ======================================================

func (h *StaffBookingHandler) Reconcile(c *gin.Context) {
	branchID := c.MustGet(middleware.ContextBranchID).(uint)

	bookingID, ok := parseUintParam(c.Param("bookingId"))
	if !ok {
		httperr.BadRequest(c, "invalid_booking_id", "Reserva inválida.")
		return
	}

	// --------------------------------------------------
	// Reserva precisa ser da filial do usuário
	// --------------------------------------------------

	b, err := h.repo.GetBookingByID(c.Request.Context(), bookingID)
	if err != nil || b.BranchID != branchID {
		httperr.NotFound(c, "booking_not_found", "Reserva não encontrada.")
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
