package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-scheduler/internal/archive"
	"github.com/BruksfildServices01/clinic-scheduler/internal/config"
	"github.com/BruksfildServices01/clinic-scheduler/internal/events"
	"github.com/BruksfildServices01/clinic-scheduler/internal/handlers"
	infraRepo "github.com/BruksfildServices01/clinic-scheduler/internal/infra/repository"
	"github.com/BruksfildServices01/clinic-scheduler/internal/lock"
	"github.com/BruksfildServices01/clinic-scheduler/internal/middleware"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
	ucBooking "github.com/BruksfildServices01/clinic-scheduler/internal/usecase/booking"
)

// Deps são os singletons montados no main.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       *zap.Logger
	Gateway   ucBooking.Gateway
	Auditor   ucBooking.Auditor
	Locker    lock.Locker
	Publisher events.Publisher
	Store     archive.Store
}

// UseCases expõe o que o main também precisa (sweep).
type UseCases struct {
	CreateHold   *ucBooking.CreateHold
	Reconcile    *ucBooking.Reconcile
	Sweep        *ucBooking.SweepExpired
	Availability *ucBooking.GetAvailability

	// Callbacks drena os webhooks em segundo plano no shutdown.
	Callbacks *handlers.GatewayCallbackHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) *UseCases {

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.CORSMiddleware(d.Config.CORSOrigins))
	r.Use(middleware.RequestLogger(d.Log))

	// ======================================================
	// 🔧 INFRA (SINGLETONS)
	// ======================================================
	bookingRepo := infraRepo.NewBookingGormRepository(d.DB)

	// ======================================================
	// 🧠 USE CASES / ONLINE BOOKING
	// ======================================================
	reconcileUC := ucBooking.NewReconcile(
		bookingRepo,
		d.Gateway,
		d.Auditor,
		d.Publisher,
		d.Store,
		d.Log,
	)

	createHoldUC := ucBooking.NewCreateHold(
		bookingRepo,
		d.Gateway,
		d.Locker,
		d.Auditor,
		d.Publisher,
		ucBooking.HoldSettings{
			DepositAmount: d.Config.DepositAmount,
			HoldWindow:    d.Config.HoldWindow,
			CallbackBase:  d.Config.CallbackBase(),
			LockTTL:       d.Config.SlotLockTTL,
		},
		d.Log,
	)

	availabilityUC := ucBooking.NewGetAvailability(bookingRepo)

	bookingCallbackUC := ucBooking.NewHandleBookingCallback(
		bookingRepo,
		reconcileUC,
		d.Auditor,
		d.Log,
	)

	invoiceCallbackUC := ucBooking.NewReconcileGatewayInvoice(
		bookingRepo,
		d.Gateway,
		d.Auditor,
		d.Log,
	)

	sweepUC := ucBooking.NewSweepExpired(
		bookingRepo,
		reconcileUC,
		d.Auditor,
		d.Publisher,
		d.Config.HoldWindow,
		d.Log,
	)

	// ======================================================
	// 🧠 USE CASES / STAFF
	// ======================================================
	listOnlineUC := ucBooking.NewListOnlineBookings(bookingRepo)
	publishScheduleUC := ucBooking.NewPublishSchedule(bookingRepo, d.Auditor)

	// ======================================================
	// 🧩 HANDLERS
	// ======================================================
	onlineBookingHandler := handlers.NewOnlineBookingHandler(
		createHoldUC,
		reconcileUC,
		availabilityUC,
	)

	callbackHandler := handlers.NewGatewayCallbackHandler(
		bookingCallbackUC,
		invoiceCallbackUC,
	)

	staffBookingHandler := handlers.NewStaffBookingHandler(
		bookingRepo,
		listOnlineUC,
		reconcileUC,
	)

	workingHoursHandler := handlers.NewWorkingHoursHandler(bookingRepo, publishScheduleUC)
	meHandler := handlers.NewMeHandler(bookingRepo)
	auditLogsHandler := handlers.NewAuditLogsHandler(infraRepo.NewAuditGormRepository(d.DB))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ======================================================
	// 💳 GATEWAY (WEBHOOKS)
	// ======================================================
	gw := r.Group("/gateway")
	{
		gw.GET("/booking/callback", callbackHandler.Booking)
		gw.POST("/booking/callback", callbackHandler.Booking)
		gw.GET("/callback", callbackHandler.Invoice)
		gw.POST("/callback", callbackHandler.Invoice)
	}

	// ======================================================
	// 🌐 API PÚBLICA
	// ======================================================
	public := r.Group("/bookings/online")
	{
		public.GET("/availability", onlineBookingHandler.Availability)
		public.POST("/hold", onlineBookingHandler.Hold)
		public.GET("/:bookingId/payment-status", onlineBookingHandler.PaymentStatus)
	}

	// ======================================================
	// 🔐 API PRIVADA (RECEPÇÃO)
	// ======================================================
	staff := r.Group("/staff")
	staff.Use(middleware.AuthMiddleware(d.Config))
	{
		staff.GET("/me", meHandler.GetMe)

		staff.GET("/bookings/online", staffBookingHandler.ListOnline)
		staff.POST("/bookings/online/:bookingId/reconcile", staffBookingHandler.Reconcile)

		staff.GET("/doctors/:doctorId/schedules", workingHoursHandler.Get)
		staff.PUT("/doctors/:doctorId/schedules",
			middleware.RequireRole(models.RoleAdmin, models.RoleReceptionist),
			workingHoursHandler.Update,
		)

		staff.GET("/audit-logs", auditLogsHandler.List)
	}

	return &UseCases{
		CreateHold:   createHoldUC,
		Reconcile:    reconcileUC,
		Sweep:        sweepUC,
		Availability: availabilityUC,
		Callbacks:    callbackHandler,
	}
}
