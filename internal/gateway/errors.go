package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrCredentialsMissing    = errors.New("gateway: client credentials not configured")
	ErrAuthFailed            = errors.New("gateway: authentication failed")
	ErrInvoiceCreationFailed = errors.New("gateway: invoice creation failed")
	ErrCheckFailed           = errors.New("gateway: payment check failed")
	ErrCancelFailed          = errors.New("gateway: invoice cancel failed")
)

// Error carrega o status/corpo devolvidos pelo gateway. errors.Is funciona
// tanto com o sentinel da operação quanto com a causa de transporte.
type Error struct {
	Op         error
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d: %s", e.Op, e.StatusCode, truncate(e.Body, 512))
	}
	return e.Op.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Op, e.Err}
	}
	return []error{e.Op}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
