package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-scheduler/internal/usecase/booking"
)

const callbackTimeout = 30 * time.Second

// ======================================================
// HANDLER
// ======================================================

// GatewayCallbackHandler responde 200 na hora e processa o webhook em
// segundo plano; o gateway não repete chamadas que receberam erro.
type GatewayCallbackHandler struct {
	bookingCallback *booking.HandleBookingCallback
	invoiceCallback *booking.ReconcileGatewayInvoice

	dispatch func(func(ctx context.Context))
	inflight sync.WaitGroup
}

func NewGatewayCallbackHandler(
	bookingCallback *booking.HandleBookingCallback,
	invoiceCallback *booking.ReconcileGatewayInvoice,
) *GatewayCallbackHandler {
	h := &GatewayCallbackHandler{
		bookingCallback: bookingCallback,
		invoiceCallback: invoiceCallback,
	}
	h.dispatch = h.goDispatch
	return h
}

func (h *GatewayCallbackHandler) goDispatch(fn func(ctx context.Context)) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait bloqueia até os webhooks em andamento terminarem ou o ctx expirar.
// Chamar depois do srv.Shutdown, antes de fechar o audit.
func (h *GatewayCallbackHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ======================================================
// BOOKING CALLBACK
// ======================================================

func (h *GatewayCallbackHandler) Booking(c *gin.Context) {
	bookingID := c.Query("bookingId")
	token := c.Query("token")

	h.dispatch(func(ctx context.Context) {
		h.bookingCallback.Execute(ctx, bookingID, token)
	})

	c.String(http.StatusOK, "SUCCESS")
}

// ======================================================
// GENERIC INVOICE CALLBACK
// ======================================================

func (h *GatewayCallbackHandler) Invoice(c *gin.Context) {
	invoiceID := c.Query("invoiceId")

	if invoiceID != "" {
		h.dispatch(func(ctx context.Context) {
			h.invoiceCallback.Execute(ctx, invoiceID)
		})
	}

	c.String(http.StatusOK, "SUCCESS")
}
