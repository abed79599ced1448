package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/payflow/internal/config"
	credentialdomain "github.com/smallbiznis/payflow/internal/credential/domain"
	providerdomain "github.com/smallbiznis/payflow/internal/provider/domain"
	"github.com/smallbiznis/payflow/internal/session"
	sessiondomain "github.com/smallbiznis/payflow/internal/session/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	setCalls int
	setErr   error
	lastSet  providerdomain.SetCheckoutRequest
}

func (f *fakeClient) SetExpressCheckout(ctx context.Context, req providerdomain.SetCheckoutRequest) (string, error) {
	f.setCalls++
	f.lastSet = req
	if f.setErr != nil {
		return "", f.setErr
	}
	return fmt.Sprintf("EC-TOKEN%03d", f.setCalls), nil
}

func (f *fakeClient) GetExpressCheckoutDetails(ctx context.Context, token string) (*providerdomain.CheckoutDetails, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeClient) CreateBillingAgreement(ctx context.Context, token string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeClient) DoCapture(ctx context.Context, req providerdomain.CaptureRequest) (providerdomain.CaptureOutcome, error) {
	return providerdomain.CaptureOutcome{}, fmt.Errorf("not implemented")
}

func (f *fakeClient) RefundTransaction(ctx context.Context, req providerdomain.RefundRequest) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeClient) TestCredentials(ctx context.Context, cred credentialdomain.Credential) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func newManager(t *testing.T, settings config.Settings) (*session.Manager, *fakeClient) {
	t.Helper()

	client := &fakeClient{}
	manager := session.NewManager(session.ManagerParams{
		Cfg:      config.Config{ReturnBaseURL: "https://shop.example"},
		Settings: config.NewStaticSettingsHolder(settings),
		Store:    session.NewMemoryStore(),
		Client:   client,
		Log:      zap.NewNop(),
	})
	return manager, client
}

func TestStartPersistsSessionAndBuildsRedirect(t *testing.T) {
	manager, client := newManager(t, config.DefaultSettings())
	ctx := context.Background()

	redirect, err := manager.Start(ctx, "key-1", session.StartParams{
		Amount:        1299,
		Currency:      "USD",
		InvoiceNumber: "WC-1001",
		Source:        sessiondomain.SourceCheckout,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://www.sandbox.paypal.com/checkoutnow?token=EC-TOKEN001", redirect)
	assert.Equal(t, "https://shop.example/checkout/return", client.lastSet.ReturnURL)
	assert.Equal(t, "https://shop.example/checkout/cancel", client.lastSet.CancelURL)

	sess, err := manager.Resume(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "EC-TOKEN001", sess.Token)
	assert.Equal(t, sessiondomain.SourceCheckout, sess.Source)
	assert.False(t, sess.CheckoutCompleted)
}

func TestStartFromOrderUsesCommitMode(t *testing.T) {
	manager, _ := newManager(t, config.DefaultSettings())

	redirect, err := manager.Start(context.Background(), "key-1", session.StartParams{
		OrderID:  42,
		Amount:   1299,
		Currency: "USD",
		Source:   sessiondomain.SourceOrder,
	})
	require.NoError(t, err)
	assert.Contains(t, redirect, "useraction=commit")
}

func TestStartFailureLeavesNoSession(t *testing.T) {
	manager, client := newManager(t, config.DefaultSettings())
	client.setErr = &providerdomain.Fault{Codes: []string{"10002"}, Message: "Security error"}
	ctx := context.Background()

	_, err := manager.Start(ctx, "key-1", session.StartParams{Amount: 100, Currency: "USD"})
	require.ErrorIs(t, err, sessiondomain.ErrSessionCreation)

	_, err = manager.Resume(ctx, "key-1")
	assert.ErrorIs(t, err, sessiondomain.ErrMissingSession)
}

func TestResumeMissingSession(t *testing.T) {
	manager, _ := newManager(t, config.DefaultSettings())
	_, err := manager.Resume(context.Background(), "nobody")
	assert.ErrorIs(t, err, sessiondomain.ErrMissingSession)
}

func TestHandleReturnRecordsPayerAndChecksToken(t *testing.T) {
	manager, _ := newManager(t, config.DefaultSettings())
	ctx := context.Background()

	_, err := manager.Start(ctx, "key-1", session.StartParams{Amount: 100, Currency: "USD"})
	require.NoError(t, err)

	sess, err := manager.HandleReturn(ctx, "key-1", "EC-TOKEN001", "PAYER9")
	require.NoError(t, err)
	assert.Equal(t, "PAYER9", sess.PayerID)

	_, err = manager.HandleReturn(ctx, "key-1", "EC-OTHER", "PAYER9")
	assert.ErrorIs(t, err, sessiondomain.ErrMissingSession)
}

func TestCompleteKeepsSessionForIdempotency(t *testing.T) {
	manager, _ := newManager(t, config.DefaultSettings())
	ctx := context.Background()

	_, err := manager.Start(ctx, "key-1", session.StartParams{Amount: 100, Currency: "USD"})
	require.NoError(t, err)

	sess, err := manager.Resume(ctx, "key-1")
	require.NoError(t, err)
	require.NoError(t, manager.Complete(ctx, "key-1", sess, "https://shop.example/checkout/order-received/1001"))

	again, err := manager.Resume(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, again.CheckoutCompleted)
	assert.Equal(t, "https://shop.example/checkout/order-received/1001", again.ConfirmationURL)
}

func TestClearRemovesSession(t *testing.T) {
	manager, _ := newManager(t, config.DefaultSettings())
	ctx := context.Background()

	_, err := manager.Start(ctx, "key-1", session.StartParams{Amount: 100, Currency: "USD"})
	require.NoError(t, err)
	require.NoError(t, manager.Clear(ctx, "key-1"))

	_, err = manager.Resume(ctx, "key-1")
	assert.ErrorIs(t, err, sessiondomain.ErrMissingSession)
}

func TestRedirectURLLiveHost(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Environment = config.EnvironmentLive
	manager, _ := newManager(t, settings)

	assert.Equal(t,
		"https://www.paypal.com/checkoutnow?token=EC-X",
		manager.RedirectURL("EC-X", false),
	)
	assert.Equal(t,
		"https://www.paypal.com/checkoutnow?token=EC-X&useraction=commit",
		manager.RedirectURL("EC-X", true),
	)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	sess := &sessiondomain.Session{Token: "EC-1"}
	require.NoError(t, store.Put(ctx, "key-1", sess, 10*time.Millisecond))

	got, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	time.Sleep(20 * time.Millisecond)

	got, err = store.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
