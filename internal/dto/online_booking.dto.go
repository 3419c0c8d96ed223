package dto

import (
	"time"

	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/gateway"
	"github.com/BruksfildServices01/clinic-scheduler/internal/usecase/booking"
)

type HoldResponse struct {
	BookingID        uint               `json:"bookingId"`
	ExpiresAt        time.Time          `json:"expiresAt"`
	GatewayInvoiceID string             `json:"gatewayInvoiceId"`
	QRText           string             `json:"qrText"`
	QRImage          string             `json:"qrImage"`
	ShortURL         string             `json:"shortUrl,omitempty"`
	URLs             []gateway.DeepLink `json:"urls"`
}

func NewHoldResponse(out *booking.CreateHoldOutput) HoldResponse {
	urls := out.URLs
	if urls == nil {
		urls = []gateway.DeepLink{}
	}
	return HoldResponse{
		BookingID:        out.BookingID,
		ExpiresAt:        out.ExpiresAt,
		GatewayInvoiceID: out.GatewayInvoiceID,
		QRText:           out.QRText,
		QRImage:          out.QRImage,
		ShortURL:         out.ShortURL,
		URLs:             urls,
	}
}

type PaymentStatusResponse struct {
	Status        domain.PaymentState `json:"status"`
	BookingStatus domain.Status       `json:"bookingStatus"`
	ExpiresAt     *time.Time          `json:"expiresAt,omitempty"`
}

func NewPaymentStatusResponse(res *booking.ReconcileResult) PaymentStatusResponse {
	return PaymentStatusResponse{
		Status:        res.Status,
		BookingStatus: res.BookingStatus,
		ExpiresAt:     res.ExpiresAt,
	}
}

// OnlineBookingListDTO é a linha do painel da recepção.
type OnlineBookingListDTO struct {
	ID            uint       `json:"id"`
	DoctorID      uint       `json:"doctor_id"`
	Date          string     `json:"date"`
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	Status        string     `json:"status"`
	Note          string     `json:"note"`
	DepositStatus string     `json:"deposit_status,omitempty"`
	DepositAmount int64      `json:"deposit_amount,omitempty"`
	PaidAmount    int64      `json:"paid_amount,omitempty"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func NewOnlineBookingList(rows []domain.OnlineBooking) []OnlineBookingListDTO {
	out := make([]OnlineBookingListDTO, 0, len(rows))
	for _, r := range rows {
		item := OnlineBookingListDTO{
			ID:        r.Booking.ID,
			DoctorID:  r.Booking.DoctorID,
			Date:      r.Booking.Date,
			StartTime: r.Booking.StartTime,
			EndTime:   r.Booking.EndTime,
			Status:    r.Booking.Status,
			Note:      r.Booking.Note,
		}
		if d := r.Deposit; d != nil {
			exp := d.HoldExpiresAt
			item.DepositStatus = d.Status
			item.DepositAmount = d.Amount
			item.PaidAmount = d.PaidAmount
			item.HoldExpiresAt = &exp
			item.PaidAt = d.PaidAt
		}
		out = append(out, item)
	}
	return out
}
