package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Result statuses reported back to the host platform.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Result is the payment entry point's answer: where to send the shopper
// next, or a user-facing message when the attempt failed terminally. A
// retryable decline is a success result whose redirect re-enters the
// provider's hosted flow.
type Result struct {
	Status   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Service drives a checkout attempt for an order.
type Service interface {
	// ProcessPayment starts a hosted checkout when the shopper has no
	// provider session yet, and otherwise executes the capture against
	// the stored session.
	ProcessPayment(ctx context.Context, sessionKey string, orderID snowflake.ID) (Result, error)
}
