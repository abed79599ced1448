package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Source records where a checkout session was started from.
type Source string

const (
	// SourceCheckout is the regular cart/checkout-page entry.
	SourceCheckout Source = "checkout"
	// SourceOrder is a retry against an existing order, used when the
	// shopper is sent back to pick a new funding source.
	SourceOrder Source = "order"
)

// Session binds a shopper's hosted-checkout interaction to an order context.
// It is keyed by the shopper's browsing-session key and lives in the session
// store until payment succeeds or the TTL lapses.
type Session struct {
	Token             string       `json:"token"`
	PayerID           string       `json:"payer_id"`
	CheckoutCompleted bool         `json:"checkout_completed"`
	Source            Source       `json:"source"`
	OrderID           snowflake.ID `json:"order_id,omitempty"`
	// ConfirmationURL is retained after completion so a re-submit can be
	// answered without touching the provider again.
	ConfirmationURL string    `json:"confirmation_url,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
}
