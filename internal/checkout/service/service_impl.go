package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/payflow/internal/audit/domain"
	"github.com/smallbiznis/payflow/internal/checkout/domain"
	"github.com/smallbiznis/payflow/internal/config"
	ledgerdomain "github.com/smallbiznis/payflow/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/payflow/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/payflow/internal/order/domain"
	providerdomain "github.com/smallbiznis/payflow/internal/provider/domain"
	"github.com/smallbiznis/payflow/internal/session"
	sessiondomain "github.com/smallbiznis/payflow/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tryAgainMessage = "Sorry, an error occurred while trying to process your payment. Please try again."

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Cfg      config.Config
	Settings *config.SettingsHolder
	Sessions *session.Manager
	Client   providerdomain.Client
	Orders   orderdomain.Repository
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	cfg      config.Config
	settings *config.SettingsHolder
	sessions *session.Manager
	client   providerdomain.Client
	orders   orderdomain.Repository
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("checkout.service"),
		genID:    p.GenID,
		cfg:      p.Cfg,
		settings: p.Settings,
		sessions: p.Sessions,
		client:   p.Client,
		orders:   p.Orders,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) ProcessPayment(ctx context.Context, sessionKey string, orderID snowflake.ID) (domain.Result, error) {
	order, err := s.orders.Find(ctx, s.db, orderID)
	if err != nil {
		return domain.Result{}, err
	}

	sess, err := s.sessions.Resume(ctx, sessionKey)
	if errors.Is(err, sessiondomain.ErrMissingSession) {
		// No provider session yet: the shopper picked the gateway on the
		// checkout page without going through the hosted flow first, so
		// send them out to the provider now.
		return s.startFromOrder(ctx, sessionKey, order)
	}
	if err != nil {
		return domain.Result{}, err
	}

	return s.execute(ctx, sessionKey, order, sess)
}

func (s *Service) startFromOrder(ctx context.Context, sessionKey string, order *orderdomain.Order) (domain.Result, error) {
	settings := s.settings.Current()

	redirect, err := s.sessions.Start(ctx, sessionKey, session.StartParams{
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		InvoiceNumber: settings.InvoicePrefix + order.Number,
		Source:        sessiondomain.SourceOrder,
	})
	if err != nil {
		if errors.Is(err, sessiondomain.ErrSessionCreation) {
			return domain.Result{Status: domain.StatusFailure, Message: err.Error()}, nil
		}
		return domain.Result{}, err
	}
	return domain.Result{Status: domain.StatusSuccess, Redirect: redirect}, nil
}

// execute runs one capture attempt against an existing session. Re-invoking
// it for a session already marked completed returns the stored confirmation
// redirect without touching the provider, so a refresh or back-button
// re-submit cannot double-capture.
func (s *Service) execute(ctx context.Context, sessionKey string, order *orderdomain.Order, sess *sessiondomain.Session) (domain.Result, error) {
	if sess.CheckoutCompleted {
		// The stored redirect only answers a re-submit of the same order. A
		// session consumed by a different order is spent; start over.
		if sess.OrderID == order.ID {
			return domain.Result{Status: domain.StatusSuccess, Redirect: sess.ConfirmationURL}, nil
		}
		return s.startFromOrder(ctx, sessionKey, order)
	}

	details, err := s.client.GetExpressCheckoutDetails(ctx, sess.Token)
	if err != nil {
		return s.classifyFault(ctx, sessionKey, order, sess, err)
	}

	payerID := sess.PayerID
	if payerID == "" {
		payerID = details.PayerID
	}

	settings := s.settings.Current()

	// Billing-agreement failures are deliberately not caught separately;
	// they share the capture classification below.
	if settings.RequireBillingAgreement && order.BillingAgreementID == "" {
		agreementID, err := s.client.CreateBillingAgreement(ctx, sess.Token)
		if err != nil {
			return s.classifyFault(ctx, sessionKey, order, sess, err)
		}
		if err := s.orders.SetBillingAgreement(ctx, s.db, order.ID, agreementID); err != nil {
			return domain.Result{}, err
		}
		order.BillingAgreementID = agreementID
	}

	// Zero-amount orders (free trials) are paid without a remote capture.
	if order.TotalAmount <= 0 {
		if err := s.orders.MarkPaid(ctx, s.db, order.ID, time.Now().UTC()); err != nil {
			return domain.Result{}, err
		}
		return s.complete(ctx, sessionKey, order, sess, nil)
	}

	outcome, err := s.client.DoCapture(ctx, providerdomain.CaptureRequest{
		Token:         sess.Token,
		PayerID:       payerID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		InvoiceNumber: settings.InvoicePrefix + order.Number,
		PaymentAction: settings.PaymentAction,
	})
	if err != nil {
		return s.failPayment(ctx, order, err.Error(), nil)
	}

	switch outcome.Status {
	case providerdomain.CaptureRetryableDecline:
		return s.retryableDecline(ctx, sessionKey, order, sess, outcome.Fault)
	case providerdomain.CaptureFailed:
		return s.failPayment(ctx, order, outcome.Fault.Message, outcome.Fault.Codes)
	case providerdomain.CaptureCaptured:
		return s.settleCapture(ctx, sessionKey, order, sess, outcome.Transactions)
	default:
		return domain.Result{}, fmt.Errorf("unexpected capture status %q", outcome.Status)
	}
}

func (s *Service) classifyFault(ctx context.Context, sessionKey string, order *orderdomain.Order, sess *sessiondomain.Session, err error) (domain.Result, error) {
	fault, ok := providerdomain.AsFault(err)
	if !ok {
		return domain.Result{}, err
	}
	if fault.IsMissingSession() {
		// The provider no longer knows the token. Not recoverable without
		// the shopper re-entering checkout.
		return domain.Result{Status: domain.StatusFailure, Message: tryAgainMessage}, nil
	}
	if fault.IsRetryableDecline() {
		return s.retryableDecline(ctx, sessionKey, order, sess, fault)
	}
	return s.failPayment(ctx, order, fault.Message, fault.Codes)
}

// retryableDecline sends the shopper back to the provider to pick a new
// funding source. Not a terminal failure; the loop is unbounded.
func (s *Service) retryableDecline(ctx context.Context, sessionKey string, order *orderdomain.Order, sess *sessiondomain.Session, fault *providerdomain.Fault) (domain.Result, error) {
	redirect, err := s.sessions.MarkRetry(ctx, sessionKey, sess, order.ID)
	if err != nil {
		return domain.Result{}, err
	}

	s.log.Info("payment declined, redirecting shopper to pick a new funding source",
		zap.Int64("order_id", int64(order.ID)),
		zap.Strings("codes", fault.Codes),
	)
	s.recordPayment("retryable_decline")
	return domain.Result{Status: domain.StatusSuccess, Redirect: redirect}, nil
}

func (s *Service) failPayment(ctx context.Context, order *orderdomain.Order, message string, codes []string) (domain.Result, error) {
	_ = s.auditSvc.Log(ctx, "payment.capture_failed", "order", order.ID.String(), map[string]any{
		"message": message,
		"codes":   codes,
	})
	s.recordPayment("failed")
	return domain.Result{Status: domain.StatusFailure, Message: message}, nil
}

func (s *Service) settleCapture(ctx context.Context, sessionKey string, order *orderdomain.Order, sess *sessiondomain.Session, transactions []providerdomain.CapturedTransaction) (domain.Result, error) {
	ledger, err := ledgerdomain.FromMetadata(order.Metadata)
	if err != nil {
		return domain.Result{}, err
	}
	for _, txn := range transactions {
		ledger = append(ledger, ledgerdomain.Entry{
			TransactionID: txn.TransactionID,
			Amount:        txn.Amount,
		})
	}

	metadata, err := ledger.ApplyTo(order.Metadata)
	if err != nil {
		return domain.Result{}, err
	}
	if err := s.orders.UpdateMetadata(ctx, s.db, order.ID, metadata); err != nil {
		return domain.Result{}, err
	}
	order.Metadata = metadata

	now := time.Now().UTC()
	if err := s.orders.MarkPaid(ctx, s.db, order.ID, now); err != nil {
		return domain.Result{}, err
	}

	for _, txn := range transactions {
		note := &orderdomain.OrderNote{
			ID:        s.genID.Generate(),
			OrderID:   order.ID,
			Note:      fmt.Sprintf("Payment completed; transaction ID = %s", txn.TransactionID),
			CreatedAt: now,
		}
		if err := s.orders.AppendNote(ctx, s.db, note); err != nil {
			return domain.Result{}, err
		}
	}

	return s.complete(ctx, sessionKey, order, sess, transactions)
}

// complete consumes the session, empties the shopper's cart context and
// answers with the order confirmation redirect.
func (s *Service) complete(ctx context.Context, sessionKey string, order *orderdomain.Order, sess *sessiondomain.Session, transactions []providerdomain.CapturedTransaction) (domain.Result, error) {
	confirmation := s.cfg.ReturnBaseURL + "/checkout/order-received/" + order.Number

	// Pin the session to the order it settled so the idempotent replay above
	// can tell a re-submit from a new order in the same browser session.
	sess.OrderID = order.ID
	if err := s.sessions.Complete(ctx, sessionKey, sess, confirmation); err != nil {
		return domain.Result{}, err
	}

	metadata := map[string]any{
		"order_number": order.Number,
		"amount":       order.TotalAmount,
		"currency":     order.Currency,
	}
	if len(transactions) > 0 {
		ids := make([]string, 0, len(transactions))
		for _, txn := range transactions {
			ids = append(ids, txn.TransactionID)
		}
		metadata["transaction_ids"] = ids
	}
	_ = s.auditSvc.Log(ctx, "payment.completed", "order", order.ID.String(), metadata)

	s.recordPayment("completed")
	return domain.Result{Status: domain.StatusSuccess, Redirect: confirmation}, nil
}

func (s *Service) recordPayment(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPayment(outcome)
	}
}
