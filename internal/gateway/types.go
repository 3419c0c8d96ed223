package gateway

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ======================================================
// AUTH
// ======================================================

type tokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ======================================================
// INVOICE
// ======================================================

type InvoiceRequest struct {
	Reference    string
	Amount       int64
	Description  string
	CallbackURL  string
	ReceiverCode string
}

type createInvoiceBody struct {
	InvoiceCode         string `json:"invoice_code"`
	SenderInvoiceNo     string `json:"sender_invoice_no"`
	InvoiceReceiverCode string `json:"invoice_receiver_code"`
	InvoiceDescription  string `json:"invoice_description"`
	Amount              int64  `json:"amount"`
	CallbackURL         string `json:"callback_url"`
}

type DeepLink struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Link        string `json:"link"`
}

type Invoice struct {
	InvoiceID string     `json:"invoice_id"`
	QRText    string     `json:"qr_text"`
	QRImage   string     `json:"qr_image"`
	ShortURL  string     `json:"qPay_shortUrl"`
	URLs      []DeepLink `json:"urls"`

	Raw json.RawMessage `json:"-"`
}

// ======================================================
// PAYMENT CHECK
// ======================================================

type checkBody struct {
	ObjectType string      `json:"object_type"`
	ObjectID   string      `json:"object_id"`
	Offset     checkOffset `json:"offset"`
}

type checkOffset struct {
	PageNumber int `json:"page_number"`
	PageLimit  int `json:"page_limit"`
}

type checkResponse struct {
	Count      int          `json:"count"`
	PaidAmount Amount       `json:"paid_amount"`
	Rows       []PaymentRow `json:"rows"`
}

type PaymentRow struct {
	PaymentID       string `json:"payment_id"`
	PaymentStatus   string `json:"payment_status"`
	PaymentAmount   Amount `json:"payment_amount"`
	PaymentDate     string `json:"payment_date"`
	PaymentCurrency string `json:"payment_currency"`
	PaymentWallet   string `json:"payment_wallet"`
	TransactionType string `json:"transaction_type"`
}

func (r PaymentRow) IsPaid() bool {
	return strings.EqualFold(r.PaymentStatus, "PAID")
}

func (r PaymentRow) PaidAt() *time.Time {
	return parseGatewayTime(r.PaymentDate)
}

type PaymentCheck struct {
	Paid       bool
	PaidAmount int64
	PaymentID  string
	PaidAt     *time.Time
	Rows       []PaymentRow
	Raw        json.RawMessage
}

// Amount guarda o valor do gateway em centésimos, sem arredondar; aceita
// número ou string ("100.00") no JSON.
type Amount int64

var hundred = decimal.NewFromInt(100)

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*a = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	// fração abaixo do centésimo é descartada para baixo
	*a = Amount(d.Mul(hundred).Floor().IntPart())
	return nil
}

// Units converte centésimos em unidades inteiras, sempre para baixo.
func (a Amount) Units() int64 {
	if a <= 0 {
		return 0
	}
	return int64(a) / 100
}

var gatewayTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseGatewayTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range gatewayTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
