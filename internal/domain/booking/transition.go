package booking

import "github.com/BruksfildServices01/clinic-scheduler/internal/httperr"

// Transition é um par (depósito, reserva) aplicado numa única escrita.
type Transition struct {
	DepositFrom DepositStatus
	DepositTo   DepositStatus
	BookingFrom Status
	BookingTo   Status
}

var (
	TransitionConfirm = Transition{
		DepositFrom: DepositNew,
		DepositTo:   DepositPaid,
		BookingFrom: StatusOnlineHeld,
		BookingTo:   StatusOnlineConfirmed,
	}

	TransitionExpire = Transition{
		DepositFrom: DepositNew,
		DepositTo:   DepositExpired,
		BookingFrom: StatusOnlineHeld,
		BookingTo:   StatusOnlineExpired,
	}
)

// CanTransition valida a tabela de transições do depósito.
// Só NEW sai do lugar; nada volta para trás.
func CanTransition(from, to DepositStatus) error {
	switch from {
	case DepositNew:
		switch to {
		case DepositPaid, DepositExpired, DepositCancelled:
			return nil
		case DepositNew:
			return httperr.ErrBusiness("invalid_state")
		}
	case DepositPaid, DepositExpired, DepositCancelled:
		return httperr.ErrBusiness("deposit_terminal")
	}
	return httperr.ErrBusiness("invalid_state")
}
