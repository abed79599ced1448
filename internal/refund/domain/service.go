package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// RefundResult reports the provider transactions a refund was split across.
type RefundResult struct {
	TransactionIDs []string `json:"transaction_ids"`
	Amount         int64    `json:"amount"`
	Currency       string   `json:"currency"`
}

// Service allocates refunds against an order's captured transactions.
type Service interface {
	// Refund pays back amount (minor units) against the order's ledger.
	// Progress made before an error is kept; a partial result is returned
	// together with the error so callers can report what did go through.
	Refund(ctx context.Context, orderID snowflake.ID, amount int64, reason string) (RefundResult, error)
}
