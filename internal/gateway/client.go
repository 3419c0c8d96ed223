package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	checkPageLimit = 100
	checkMaxPages  = 10
)

type Client struct {
	cfg    Config
	tokens *TokenProvider
	http   *http.Client
	log    *zap.Logger
}

func NewClient(cfg Config, tokens *TokenProvider, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		http:   httpClient,
		log:    log,
	}
}

// ======================================================
// CREATE INVOICE
// ======================================================

func (c *Client) CreateInvoice(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	receiver := in.ReceiverCode
	if receiver == "" {
		receiver = c.cfg.ReceiverCode
	}

	payload := createInvoiceBody{
		InvoiceCode:         c.cfg.InvoiceCode,
		SenderInvoiceNo:     in.Reference,
		InvoiceReceiverCode: receiver,
		InvoiceDescription:  in.Description,
		Amount:              in.Amount,
		CallbackURL:         in.CallbackURL,
	}

	status, body, err := c.do(ctx, http.MethodPost, "/v2/invoice", payload)
	if err != nil {
		return nil, &Error{Op: ErrInvoiceCreationFailed, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &Error{Op: ErrInvoiceCreationFailed, StatusCode: status, Body: string(body)}
	}

	var inv Invoice
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, &Error{Op: ErrInvoiceCreationFailed, Err: fmt.Errorf("decode invoice: %w", err)}
	}
	if inv.InvoiceID == "" {
		return nil, &Error{Op: ErrInvoiceCreationFailed, StatusCode: status, Body: string(body)}
	}
	inv.Raw = json.RawMessage(body)

	c.log.Info("gateway invoice created",
		zap.String("invoice_id", inv.InvoiceID),
		zap.String("reference", in.Reference),
		zap.Int64("amount", in.Amount),
	)
	return &inv, nil
}

// ======================================================
// CHECK PAYMENT
// ======================================================

// CheckInvoicePaid soma apenas as linhas PAID; a linha paga mais recente
// fornece payment_id e data.
func (c *Client) CheckInvoicePaid(ctx context.Context, invoiceID string) (*PaymentCheck, error) {
	var (
		rows  []PaymentRow
		pages []json.RawMessage
	)

	for page := 1; page <= checkMaxPages; page++ {
		payload := checkBody{
			ObjectType: "INVOICE",
			ObjectID:   invoiceID,
			Offset:     checkOffset{PageNumber: page, PageLimit: checkPageLimit},
		}

		status, body, err := c.do(ctx, http.MethodPost, "/v2/payment/check", payload)
		if err != nil {
			return nil, &Error{Op: ErrCheckFailed, Err: err}
		}
		if status < 200 || status > 299 {
			return nil, &Error{Op: ErrCheckFailed, StatusCode: status, Body: string(body)}
		}

		var cr checkResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			return nil, &Error{Op: ErrCheckFailed, Err: fmt.Errorf("decode check: %w", err)}
		}

		pages = append(pages, json.RawMessage(body))
		rows = append(rows, cr.Rows...)

		if len(cr.Rows) < checkPageLimit || (cr.Count > 0 && len(rows) >= cr.Count) {
			break
		}
	}

	res := summarize(rows)
	if len(pages) == 1 {
		res.Raw = pages[0]
	} else {
		raw, _ := json.Marshal(pages)
		res.Raw = raw
	}
	return res, nil
}

func summarize(rows []PaymentRow) *PaymentCheck {
	res := &PaymentCheck{Rows: rows}

	var (
		latest *PaymentRow
		total  Amount
	)
	for i := range rows {
		r := &rows[i]
		if !r.IsPaid() {
			continue
		}
		total += r.PaymentAmount

		if latest == nil {
			latest = r
			continue
		}
		lt, rt := latest.PaidAt(), r.PaidAt()
		if lt == nil || (rt != nil && !rt.Before(*lt)) {
			latest = r
		}
	}

	// soma exata antes de converter; centavos nunca completam o depósito
	res.PaidAmount = total.Units()

	if latest != nil {
		res.Paid = true
		res.PaymentID = latest.PaymentID
		res.PaidAt = latest.PaidAt()
	}
	return res
}

// ======================================================
// CANCEL
// ======================================================

func (c *Client) CancelInvoice(ctx context.Context, invoiceID string) error {
	status, body, err := c.do(ctx, http.MethodDelete, "/v2/invoice/"+url.PathEscape(invoiceID), nil)
	if err != nil {
		return &Error{Op: ErrCancelFailed, Err: err}
	}
	if status < 200 || status > 299 {
		return &Error{Op: ErrCancelFailed, StatusCode: status, Body: string(body)}
	}
	return nil
}

// ======================================================
// TRANSPORT
// ======================================================

// do executa a chamada autenticada; um 401 invalida o token e repete uma vez.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var raw []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		raw = b
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return 0, nil, err
		}

		var body io.Reader
		if raw != nil {
			body = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if raw != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, nil, err
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return 0, nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.log.Warn("gateway token rejected, refreshing", zap.String("path", path))
			c.tokens.Invalidate()
			continue
		}
		return resp.StatusCode, respBody, nil
	}
}

func (c *Client) timeout() time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return 15 * time.Second
}
