package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	authCalls    atomic.Int32
	invoiceCalls atomic.Int32
	checkCalls   atomic.Int32
	cancelCalls  atomic.Int32

	authStatus    int
	authDelay     time.Duration
	expiresIn     int64
	invoiceStatus int
	rejectFirst   atomic.Bool
	checkDelay    time.Duration
	checkPages    map[int]string
	lastInvoice   createInvoiceBody
	mu            sync.Mutex
}

func (f *fakeGateway) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v2/auth/token", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls.Add(1)
		time.Sleep(f.authDelay)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" || f.authStatus != 0 {
			status := f.authStatus
			if status == 0 {
				status = http.StatusUnauthorized
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"NO_CREDENDIALS"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token_type":   "bearer",
			"access_token": "tok-" + string(rune('0'+f.authCalls.Load())),
			"expires_in":   f.expiresIn,
		})
	})

	mux.HandleFunc("/v2/invoice", func(w http.ResponseWriter, r *http.Request) {
		f.invoiceCalls.Add(1)
		if f.rejectFirst.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-"))

		var body createInvoiceBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.lastInvoice = body
		f.mu.Unlock()

		if f.invoiceStatus != 0 {
			w.WriteHeader(f.invoiceStatus)
			_, _ = w.Write([]byte(`{"error":"INVOICE_CODE_INVALID"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"invoice_id": "inv-001",
			"qr_text": "0002010102121531",
			"qr_image": "iVBORw0KGgo=",
			"qPay_shortUrl": "https://s.qpay.mn/abc",
			"urls": [{"name": "Khan bank", "description": "Khan bank app", "logo": "https://l/khan.png", "link": "khanbank://q?qPay_QRcode=0002"}]
		}`))
	})

	mux.HandleFunc("/v2/invoice/", func(w http.ResponseWriter, r *http.Request) {
		f.cancelCalls.Add(1)
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	mux.HandleFunc("/v2/payment/check", func(w http.ResponseWriter, r *http.Request) {
		f.checkCalls.Add(1)
		time.Sleep(f.checkDelay)
		var body checkBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "INVOICE", body.ObjectType)

		page, ok := f.checkPages[body.Offset.PageNumber]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(page))
	})

	return mux
}

func newTestClient(t *testing.T, f *fakeGateway, timeout time.Duration) (*Client, *TokenProvider) {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		InvoiceCode:  "CLINIC_INVOICE",
		ReceiverCode: "terminal",
		Timeout:      timeout,
	}
	tokens := NewTokenProvider(cfg, srv.Client(), zap.NewNop())
	return NewClient(cfg, tokens, srv.Client(), zap.NewNop()), tokens
}

func TestTokenProvider(t *testing.T) {
	t.Run("Missing Credentials", func(t *testing.T) {
		p := NewTokenProvider(Config{BaseURL: "http://127.0.0.1:1"}, nil, zap.NewNop())
		_, err := p.Token(context.Background())
		assert.ErrorIs(t, err, ErrCredentialsMissing)
	})

	t.Run("Caches Token", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600}
		_, tokens := newTestClient(t, f, time.Second)

		a, err := tokens.Token(context.Background())
		require.NoError(t, err)
		b, err := tokens.Token(context.Background())
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Equal(t, int32(1), f.authCalls.Load())
	})

	t.Run("Refreshes After Expiry", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600}
		_, tokens := newTestClient(t, f, time.Second)

		now := time.Now()
		tokens.now = func() time.Time { return now }

		_, err := tokens.Token(context.Background())
		require.NoError(t, err)

		now = now.Add(2 * time.Hour)
		_, err = tokens.Token(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int32(2), f.authCalls.Load())
	})

	t.Run("Concurrent Refresh Is Single Flight", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600, authDelay: 50 * time.Millisecond}
		_, tokens := newTestClient(t, f, time.Second)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := tokens.Token(context.Background())
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), f.authCalls.Load())
	})

	t.Run("Auth Rejected", func(t *testing.T) {
		f := &fakeGateway{authStatus: http.StatusUnauthorized}
		_, tokens := newTestClient(t, f, time.Second)

		_, err := tokens.Token(context.Background())
		require.ErrorIs(t, err, ErrAuthFailed)

		var gwErr *Error
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, http.StatusUnauthorized, gwErr.StatusCode)
	})
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(DefaultTokenLifetime), tokenExpiry(now, 0))
	assert.Equal(t, now.Add(time.Hour-TokenExpiryMargin), tokenExpiry(now, 3600))
	assert.Equal(t, now.Add(27*time.Second), tokenExpiry(now, 30))

	epoch := now.Add(time.Hour).Unix()
	assert.Equal(t, now.Add(time.Hour-TokenExpiryMargin), tokenExpiry(now, epoch))

	past := now.Add(-time.Hour).Unix()
	assert.Equal(t, now, tokenExpiry(now, past))
}

func TestCreateInvoice(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600}
		client, _ := newTestClient(t, f, time.Second)

		inv, err := client.CreateInvoice(context.Background(), InvoiceRequest{
			Reference:   "BK1-1700000000000",
			Amount:      20000,
			Description: "Deposit",
			CallbackURL: "https://clinic/cb?bookingId=1&token=x",
		})
		require.NoError(t, err)

		assert.Equal(t, "inv-001", inv.InvoiceID)
		assert.Equal(t, "0002010102121531", inv.QRText)
		assert.Len(t, inv.URLs, 1)
		assert.NotEmpty(t, inv.Raw)

		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Equal(t, "CLINIC_INVOICE", f.lastInvoice.InvoiceCode)
		assert.Equal(t, "terminal", f.lastInvoice.InvoiceReceiverCode)
		assert.Equal(t, "BK1-1700000000000", f.lastInvoice.SenderInvoiceNo)
		assert.Equal(t, int64(20000), f.lastInvoice.Amount)
	})

	t.Run("Gateway Error", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600, invoiceStatus: http.StatusBadRequest}
		client, _ := newTestClient(t, f, time.Second)

		_, err := client.CreateInvoice(context.Background(), InvoiceRequest{Reference: "r", Amount: 1})
		require.ErrorIs(t, err, ErrInvoiceCreationFailed)

		var gwErr *Error
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
		assert.Contains(t, gwErr.Body, "INVOICE_CODE_INVALID")
	})

	t.Run("Unauthorized Refreshes Token Once", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600}
		f.rejectFirst.Store(true)
		client, _ := newTestClient(t, f, time.Second)

		inv, err := client.CreateInvoice(context.Background(), InvoiceRequest{Reference: "r", Amount: 1})
		require.NoError(t, err)

		assert.Equal(t, "inv-001", inv.InvoiceID)
		assert.Equal(t, int32(2), f.authCalls.Load())
		assert.Equal(t, int32(2), f.invoiceCalls.Load())
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		cfg := Config{BaseURL: "http://127.0.0.1:1"}
		client := NewClient(cfg, NewTokenProvider(cfg, nil, zap.NewNop()), nil, zap.NewNop())

		_, err := client.CreateInvoice(context.Background(), InvoiceRequest{Reference: "r", Amount: 1})
		assert.ErrorIs(t, err, ErrInvoiceCreationFailed)
		assert.ErrorIs(t, err, ErrCredentialsMissing)
	})
}

func TestCheckInvoicePaid(t *testing.T) {
	t.Run("Sums Only Paid Rows", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600, checkPages: map[int]string{1: `{
			"count": 3,
			"paid_amount": 15000,
			"rows": [
				{"payment_id": "p1", "payment_status": "PAID", "payment_amount": "10000.00", "payment_date": "2026-10-19T09:01:00Z"},
				{"payment_id": "p2", "payment_status": "FAILED", "payment_amount": 50000, "payment_date": "2026-10-19T09:05:00Z"},
				{"payment_id": "p3", "payment_status": "PAID", "payment_amount": 10000, "payment_date": "2026-10-19T09:03:00Z"}
			]
		}`}}
		client, _ := newTestClient(t, f, time.Second)

		res, err := client.CheckInvoicePaid(context.Background(), "inv-001")
		require.NoError(t, err)

		assert.True(t, res.Paid)
		assert.Equal(t, int64(20000), res.PaidAmount)
		assert.Equal(t, "p3", res.PaymentID)
		require.NotNil(t, res.PaidAt)
		assert.Equal(t, 3, res.PaidAt.Minute())
		assert.Len(t, res.Rows, 3)
		assert.NotEmpty(t, res.Raw)
	})

	t.Run("No Paid Rows", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600, checkPages: map[int]string{1: `{"count": 0, "rows": []}`}}
		client, _ := newTestClient(t, f, time.Second)

		res, err := client.CheckInvoicePaid(context.Background(), "inv-001")
		require.NoError(t, err)

		assert.False(t, res.Paid)
		assert.Equal(t, int64(0), res.PaidAmount)
		assert.Empty(t, res.PaymentID)
	})

	t.Run("Gateway Failure", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600, checkPages: map[int]string{}}
		client, _ := newTestClient(t, f, time.Second)

		_, err := client.CheckInvoicePaid(context.Background(), "inv-001")
		assert.ErrorIs(t, err, ErrCheckFailed)
	})

	t.Run("Timeout Is Check Failure", func(t *testing.T) {
		f := &fakeGateway{expiresIn: 3600, checkDelay: 300 * time.Millisecond, checkPages: map[int]string{1: `{"count":0,"rows":[]}`}}
		client, _ := newTestClient(t, f, 100*time.Millisecond)

		_, err := client.CheckInvoicePaid(context.Background(), "inv-001")
		assert.ErrorIs(t, err, ErrCheckFailed)
	})

	t.Run("Follows Pages", func(t *testing.T) {
		var first strings.Builder
		first.WriteString(`{"count": 101, "rows": [`)
		for i := 0; i < checkPageLimit; i++ {
			if i > 0 {
				first.WriteString(",")
			}
			first.WriteString(`{"payment_id": "f", "payment_status": "FAILED", "payment_amount": 1}`)
		}
		first.WriteString(`]}`)

		f := &fakeGateway{expiresIn: 3600, checkPages: map[int]string{
			1: first.String(),
			2: `{"count": 101, "rows": [{"payment_id": "late", "payment_status": "PAID", "payment_amount": 20000}]}`,
		}}
		client, _ := newTestClient(t, f, time.Second)

		res, err := client.CheckInvoicePaid(context.Background(), "inv-001")
		require.NoError(t, err)

		assert.Equal(t, int32(2), f.checkCalls.Load())
		assert.True(t, res.Paid)
		assert.Equal(t, "late", res.PaymentID)
		assert.Equal(t, int64(20000), res.PaidAmount)
	})
}

func TestCheckInvoicePaidFractionalRows(t *testing.T) {
	f := &fakeGateway{expiresIn: 3600, checkPages: map[int]string{1: `{
		"count": 2,
		"rows": [
			{"payment_id": "p1", "payment_status": "PAID", "payment_amount": "50.5", "payment_date": "2026-10-19T09:01:00Z"},
			{"payment_id": "p2", "payment_status": "PAID", "payment_amount": 50.5, "payment_date": "2026-10-19T09:02:00Z"}
		]
	}`}}
	client, _ := newTestClient(t, f, time.Second)

	res, err := client.CheckInvoicePaid(context.Background(), "inv-001")
	require.NoError(t, err)

	assert.True(t, res.Paid)
	assert.Equal(t, int64(101), res.PaidAmount)
	// depósito de 102 não pode ser considerado pago
	assert.Less(t, res.PaidAmount, int64(102))
}

func TestCheckInvoicePaidWithoutCount(t *testing.T) {
	var first strings.Builder
	first.WriteString(`{"rows": [`)
	for i := 0; i < checkPageLimit; i++ {
		if i > 0 {
			first.WriteString(",")
		}
		first.WriteString(`{"payment_id": "f", "payment_status": "FAILED", "payment_amount": 1}`)
	}
	first.WriteString(`]}`)

	f := &fakeGateway{expiresIn: 3600, checkPages: map[int]string{
		1: first.String(),
		2: `{"rows": [{"payment_id": "late", "payment_status": "PAID", "payment_amount": 20000}]}`,
	}}
	client, _ := newTestClient(t, f, time.Second)

	res, err := client.CheckInvoicePaid(context.Background(), "inv-001")
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.checkCalls.Load())
	assert.True(t, res.Paid)
	assert.Equal(t, "late", res.PaymentID)
}

func TestCancelInvoice(t *testing.T) {
	f := &fakeGateway{expiresIn: 3600}
	client, _ := newTestClient(t, f, time.Second)

	assert.NoError(t, client.CancelInvoice(context.Background(), "inv-001"))
	assert.ErrorIs(t, client.CancelInvoice(context.Background(), "missing"), ErrCancelFailed)
	assert.Equal(t, int32(2), f.cancelCalls.Load())
}

func TestAmountUnmarshal(t *testing.T) {
	var row PaymentRow
	require.NoError(t, json.Unmarshal([]byte(`{"payment_amount": "19999.60"}`), &row))
	assert.Equal(t, Amount(1999960), row.PaymentAmount)
	assert.Equal(t, int64(19999), row.PaymentAmount.Units())

	require.NoError(t, json.Unmarshal([]byte(`{"payment_amount": 50.505}`), &row))
	assert.Equal(t, Amount(5050), row.PaymentAmount)

	require.NoError(t, json.Unmarshal([]byte(`{"payment_amount": 100}`), &row))
	assert.Equal(t, Amount(10000), row.PaymentAmount)
	assert.Equal(t, int64(100), row.PaymentAmount.Units())

	require.NoError(t, json.Unmarshal([]byte(`{"payment_amount": null}`), &row))
	assert.Equal(t, Amount(0), row.PaymentAmount)

	assert.Error(t, json.Unmarshal([]byte(`{"payment_amount": "abc"}`), &row))
}
