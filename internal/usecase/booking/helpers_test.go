package booking

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-scheduler/internal/archive"
	"github.com/BruksfildServices01/clinic-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/events"
	"github.com/BruksfildServices01/clinic-scheduler/internal/gateway"
	"github.com/BruksfildServices01/clinic-scheduler/internal/infra/repository"
	"github.com/BruksfildServices01/clinic-scheduler/internal/lock"
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
	"github.com/BruksfildServices01/clinic-scheduler/internal/testutil"
)

const day = "2026-10-20"

var holdAt = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// ======================================================
// FAKES
// ======================================================

type fakeGateway struct {
	mu sync.Mutex

	invoiceErr error
	checkErr   error
	check      gateway.PaymentCheck

	invoices int
	checks   int
	cancels  int
	requests []gateway.InvoiceRequest
}

func (g *fakeGateway) CreateInvoice(_ context.Context, in gateway.InvoiceRequest) (*gateway.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.invoices++
	g.requests = append(g.requests, in)
	if g.invoiceErr != nil {
		return nil, g.invoiceErr
	}
	return &gateway.Invoice{
		InvoiceID: fmt.Sprintf("inv-%d", g.invoices),
		QRText:    "qr-text",
		QRImage:   "qr-image",
		URLs:      []gateway.DeepLink{{Name: "Khan bank", Link: "khanbank://pay"}},
	}, nil
}

func (g *fakeGateway) CheckInvoicePaid(context.Context, string) (*gateway.PaymentCheck, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	if g.checkErr != nil {
		return nil, g.checkErr
	}
	c := g.check
	return &c, nil
}

func (g *fakeGateway) CancelInvoice(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels++
	return nil
}

func (g *fakeGateway) setPaid(amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	paidAt := holdAt.Add(3 * time.Minute)
	g.check = gateway.PaymentCheck{
		Paid:       true,
		PaidAmount: amount,
		PaymentID:  "pay-1",
		PaidAt:     &paidAt,
		Raw:        []byte(`{"count":1,"rows":[{"payment_id":"pay-1","payment_status":"PAID"}]}`),
	}
}

func (g *fakeGateway) setUnpaid() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.check = gateway.PaymentCheck{Raw: []byte(`{"count":0,"rows":[]}`)}
}

func (g *fakeGateway) checkCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checks
}

type auditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *auditRecorder) Dispatch(ev audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *auditRecorder) count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, ev := range a.events {
		if ev.Action == action {
			n++
		}
	}
	return n
}

// ======================================================
// ENV
// ======================================================

type env struct {
	db      *gorm.DB
	fix     testutil.Fixture
	repo    *repository.BookingGormRepository
	gw      *fakeGateway
	audit   *auditRecorder
	events  *events.Recorder
	archive *archive.MemoryStore

	hold      *CreateHold
	reconcile *Reconcile
	callback  *HandleBookingCallback
}

func newEnv(t *testing.T) *env {
	t.Helper()

	gdb := testutil.NewDB(t)
	e := &env{
		db:      gdb,
		fix:     testutil.Seed(t, gdb, day),
		repo:    repository.NewBookingGormRepository(gdb),
		gw:      &fakeGateway{},
		audit:   &auditRecorder{},
		events:  &events.Recorder{},
		archive: archive.NewMemoryStore(),
	}
	e.gw.setUnpaid()

	log := zap.NewNop()
	e.hold = NewCreateHold(e.repo, e.gw, lock.NewMemoryLocker(), e.audit, e.events, HoldSettings{
		DepositAmount: 20000,
		HoldWindow:    10 * time.Minute,
		CallbackBase:  "https://clinic.example.com",
		LockTTL:       time.Second,
	}, log)
	e.hold.now = func() time.Time { return holdAt }

	e.reconcile = NewReconcile(e.repo, e.gw, e.audit, e.events, e.archive, log)
	e.callback = NewHandleBookingCallback(e.repo, e.reconcile, e.audit, log)
	return e
}

func (e *env) input(start, end string) CreateHoldInput {
	return CreateHoldInput{
		BranchID:  e.fix.Branch.ID,
		DoctorID:  e.fix.Doctor.ID,
		Date:      day,
		StartTime: start,
		EndTime:   end,
		Customer:  domain.Customer{Name: "Bat", Phone: "99112233"},
	}
}

func (e *env) mustHold(t *testing.T, start, end string) *CreateHoldOutput {
	t.Helper()
	out, err := e.hold.Execute(context.Background(), e.input(start, end))
	require.NoError(t, err)
	return out
}

func (e *env) at(d time.Duration) {
	e.reconcile.now = func() time.Time { return holdAt.Add(d) }
}

func (e *env) state(t *testing.T, bookingID uint) (models.Booking, models.Deposit) {
	t.Helper()
	var b models.Booking
	require.NoError(t, e.db.First(&b, bookingID).Error)
	var d models.Deposit
	require.NoError(t, e.db.Where("booking_id = ?", bookingID).First(&d).Error)
	return b, d
}

func (e *env) callbackToken(t *testing.T, idx int) (string, string) {
	t.Helper()
	e.gw.mu.Lock()
	defer e.gw.mu.Unlock()
	u, err := url.Parse(e.gw.requests[idx].CallbackURL)
	require.NoError(t, err)
	return u.Query().Get("bookingId"), u.Query().Get("token")
}
