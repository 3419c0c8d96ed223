package booking

import "github.com/BruksfildServices01/clinic-scheduler/internal/httperr"

// ===============================
// Booking Status
// ===============================

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusConfirmed       Status = "CONFIRMED"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
	StatusOnlineHeld      Status = "ONLINE_HELD"
	StatusOnlineConfirmed Status = "ONLINE_CONFIRMED"
	StatusOnlineExpired   Status = "ONLINE_EXPIRED"
)

// ActiveStatuses ocupam a agenda do médico.
var ActiveStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusOnlineHeld,
	StatusOnlineConfirmed,
}

func (s Status) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// ===============================
// Deposit Status
// ===============================

type DepositStatus string

const (
	DepositNew       DepositStatus = "NEW"
	DepositPaid      DepositStatus = "PAID"
	DepositExpired   DepositStatus = "EXPIRED"
	DepositCancelled DepositStatus = "CANCELLED"
)

func ParseDepositStatus(s string) (DepositStatus, error) {
	switch DepositStatus(s) {
	case DepositNew, DepositPaid, DepositExpired, DepositCancelled:
		return DepositStatus(s), nil
	}
	return "", httperr.ErrBusiness("unknown_deposit_status")
}

// IsTerminal indica que nenhuma transição automática é mais permitida.
func (s DepositStatus) IsTerminal() bool {
	switch s {
	case DepositPaid, DepositExpired, DepositCancelled:
		return true
	case DepositNew:
		return false
	}
	return false
}

// ===============================
// Resultado da conciliação
// ===============================

type PaymentState string

const (
	PaymentPending   PaymentState = "PENDING"
	PaymentPaid      PaymentState = "PAID"
	PaymentExpired   PaymentState = "EXPIRED"
	PaymentCancelled PaymentState = "CANCELLED"
)

// StateOf traduz o status do depósito para o status exposto ao cliente.
func StateOf(s DepositStatus) PaymentState {
	switch s {
	case DepositPaid:
		return PaymentPaid
	case DepositExpired:
		return PaymentExpired
	case DepositCancelled:
		return PaymentCancelled
	case DepositNew:
		return PaymentPending
	}
	return PaymentPending
}
