package domain

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/payflow/pkg/money"
)

var (
	// ErrInvalidAmount rejects non-positive refund amounts.
	ErrInvalidAmount = errors.New("refund error: you need to specify a refund amount")

	// ErrNotRefundable means the order has no captured transactions to
	// refund against.
	ErrNotRefundable = errors.New("refund error: this is not a refundable transaction")
)

// InsufficientRefundableError is returned when the requested amount exceeds
// what is still open across the whole ledger. TotalRefundable distinguishes
// a fully refunded order from a merely too-large request.
type InsufficientRefundableError struct {
	TotalRefundable int64
	Currency        string
}

func (e *InsufficientRefundableError) Error() string {
	if e.TotalRefundable <= 0 {
		return "refund error: all transactions have been fully refunded; there is no amount left to refund"
	}
	return fmt.Sprintf(
		"refund error: the requested refund amount is too large; the refund amount must be less than or equal to %s",
		money.Format(e.TotalRefundable, e.Currency),
	)
}
