package domain

import (
	"context"

	credentialdomain "github.com/smallbiznis/payflow/internal/credential/domain"
)

// CheckoutDetails is the provider's view of a hosted-checkout session.
type CheckoutDetails struct {
	Token                    string
	PayerID                  string
	PayerEmail               string
	BillingAgreementAccepted bool
}

// SetCheckoutRequest starts a hosted checkout for an order context.
type SetCheckoutRequest struct {
	Amount                  int64
	Currency                string
	InvoiceNumber           string
	BrandName               string
	ReturnURL               string
	CancelURL               string
	RequireBillingAgreement bool
	PaymentAction           string
}

// CaptureRequest finalizes payment against an authorized session.
type CaptureRequest struct {
	Token         string
	PayerID       string
	Amount        int64
	Currency      string
	InvoiceNumber string
	PaymentAction string
}

// CapturedTransaction is one provider-side charge; a single capture may be
// split across several.
type CapturedTransaction struct {
	TransactionID string
	Amount        int64
}

type CaptureStatus string

const (
	CaptureCaptured         CaptureStatus = "captured"
	CaptureRetryableDecline CaptureStatus = "retryable_decline"
	CaptureFailed           CaptureStatus = "failed"
)

// CaptureOutcome is the tagged capture result, decided once at the client
// boundary. Fault is set for both decline statuses.
type CaptureOutcome struct {
	Status       CaptureStatus
	Transactions []CapturedTransaction
	Fault        *Fault
}

type RefundKind string

const (
	RefundFull    RefundKind = "Full"
	RefundPartial RefundKind = "Partial"
)

// RefundRequest refunds part or all of one provider transaction.
type RefundRequest struct {
	TransactionID string
	Amount        int64
	Currency      string
	Kind          RefundKind
	Reason        string
}

// Client is the remote payment API consumed by the gateway. Implementations
// translate provider faults into *Fault; raw transport errors are returned
// as-is and treated as terminal by callers.
type Client interface {
	SetExpressCheckout(ctx context.Context, req SetCheckoutRequest) (string, error)
	GetExpressCheckoutDetails(ctx context.Context, token string) (*CheckoutDetails, error)
	CreateBillingAgreement(ctx context.Context, token string) (string, error)
	DoCapture(ctx context.Context, req CaptureRequest) (CaptureOutcome, error)
	RefundTransaction(ctx context.Context, req RefundRequest) (string, error)
	TestCredentials(ctx context.Context, cred credentialdomain.Credential) (string, error)
}
