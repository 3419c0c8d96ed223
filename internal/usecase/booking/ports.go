package booking

import (
	"context"

	"github.com/BruksfildServices01/clinic-scheduler/internal/audit"
	"github.com/BruksfildServices01/clinic-scheduler/internal/gateway"
)

// Gateway é o subconjunto do client de pagamento usado pelos casos de uso.
type Gateway interface {
	CreateInvoice(ctx context.Context, in gateway.InvoiceRequest) (*gateway.Invoice, error)
	CheckInvoicePaid(ctx context.Context, invoiceID string) (*gateway.PaymentCheck, error)
	CancelInvoice(ctx context.Context, invoiceID string) error
}

type Auditor interface {
	Dispatch(ev audit.Event)
}

var (
	_ Gateway = (*gateway.Client)(nil)
	_ Auditor = (*audit.Dispatcher)(nil)
)
