package session

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/payflow/internal/config"
	providerdomain "github.com/smallbiznis/payflow/internal/provider/domain"
	"github.com/smallbiznis/payflow/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ManagerParams struct {
	fx.In

	Cfg      config.Config
	Settings *config.SettingsHolder
	Store    Store
	Client   providerdomain.Client
	Log      *zap.Logger
}

// Manager owns the shopper-facing checkout session and its lifecycle.
type Manager struct {
	cfg      config.Config
	settings *config.SettingsHolder
	store    Store
	client   providerdomain.Client
	log      *zap.Logger
}

func NewManager(p ManagerParams) *Manager {
	return &Manager{
		cfg:      p.Cfg,
		settings: p.Settings,
		store:    p.Store,
		client:   p.Client,
		log:      p.Log.Named("session.manager"),
	}
}

// StartParams is the order context a new hosted checkout is started for.
type StartParams struct {
	OrderID       snowflake.ID
	Amount        int64
	Currency      string
	InvoiceNumber string
	Source        domain.Source
}

// Start requests a fresh session token from the provider, persists the
// session under the shopper's browsing key and returns the hosted-page
// redirect. Nothing is persisted when the remote call fails.
func (m *Manager) Start(ctx context.Context, key string, params StartParams) (string, error) {
	settings := m.settings.Current()

	token, err := m.client.SetExpressCheckout(ctx, providerdomain.SetCheckoutRequest{
		Amount:                  params.Amount,
		Currency:                params.Currency,
		InvoiceNumber:           params.InvoiceNumber,
		BrandName:               settings.BrandName,
		ReturnURL:               m.cfg.ReturnBaseURL + "/checkout/return",
		CancelURL:               m.cfg.ReturnBaseURL + "/checkout/cancel",
		RequireBillingAgreement: settings.RequireBillingAgreement,
		PaymentAction:           settings.PaymentAction,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSessionCreation, err)
	}

	sess := &domain.Session{
		Token:   token,
		Source:  params.Source,
		OrderID: params.OrderID,
	}
	if err := m.store.Put(ctx, key, sess, settings.SessionTTL()); err != nil {
		return "", err
	}

	m.log.Info("checkout session started",
		zap.String("source", string(params.Source)),
		zap.Int64("order_id", int64(params.OrderID)),
	)
	return m.RedirectURL(token, params.Source == domain.SourceOrder), nil
}

// Resume retrieves the stored session for the shopper. Reaching the payment
// step without one is unexpected, so absence is a hard error.
func (m *Manager) Resume(ctx context.Context, key string) (*domain.Session, error) {
	sess, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domain.ErrMissingSession
	}
	return sess, nil
}

// MarkRetry flips the session into the retry-against-order state and returns
// the commit-mode redirect that forces a funding-source re-selection.
func (m *Manager) MarkRetry(ctx context.Context, key string, sess *domain.Session, orderID snowflake.ID) (string, error) {
	sess.Source = domain.SourceOrder
	sess.OrderID = orderID
	sess.CheckoutCompleted = false

	if err := m.store.Put(ctx, key, sess, m.settings.Current().SessionTTL()); err != nil {
		return "", err
	}
	return m.RedirectURL(sess.Token, true), nil
}

// HandleReturn records the payer reference once the shopper comes back from
// the provider's hosted page.
func (m *Manager) HandleReturn(ctx context.Context, key, token, payerID string) (*domain.Session, error) {
	sess, err := m.Resume(ctx, key)
	if err != nil {
		return nil, err
	}
	if token != "" && sess.Token != token {
		return nil, domain.ErrMissingSession
	}

	sess.PayerID = payerID
	if err := m.store.Put(ctx, key, sess, m.settings.Current().SessionTTL()); err != nil {
		return nil, err
	}
	return sess, nil
}

// Complete marks the session consumed and remembers the confirmation
// redirect. The session is kept until its TTL so a double submit can be
// answered idempotently.
func (m *Manager) Complete(ctx context.Context, key string, sess *domain.Session, confirmationURL string) error {
	sess.CheckoutCompleted = true
	sess.ConfirmationURL = confirmationURL
	return m.store.Put(ctx, key, sess, m.settings.Current().SessionTTL())
}

// Clear destroys the session, used when the shopper abandons checkout.
func (m *Manager) Clear(ctx context.Context, key string) error {
	return m.store.Delete(ctx, key)
}

// RedirectURL builds the hosted-page URL for a session token. Commit mode
// adds useraction=commit, which makes the provider show a Pay Now review
// step and a funding-source picker.
func (m *Manager) RedirectURL(token string, commit bool) string {
	host := "https://www.paypal.com"
	if m.settings.Current().IsSandbox() {
		host = "https://www.sandbox.paypal.com"
	}

	redirect := host + "/checkoutnow?token=" + url.QueryEscape(token)
	if commit {
		redirect += "&useraction=commit"
	}
	return redirect
}
