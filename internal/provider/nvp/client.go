package nvp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/payflow/internal/config"
	credentialdomain "github.com/smallbiznis/payflow/internal/credential/domain"
	obsmetrics "github.com/smallbiznis/payflow/internal/observability/metrics"
	"github.com/smallbiznis/payflow/internal/provider/domain"
	"github.com/smallbiznis/payflow/pkg/money"
	"go.uber.org/zap"
)

const apiVersion = "120.0"

const (
	liveEndpoint    = "https://api-3t.paypal.com/nvp"
	sandboxEndpoint = "https://api-3t.sandbox.paypal.com/nvp"
)

// Client speaks the provider's NVP form-encoded API. Faults are translated
// into *domain.Fault at this boundary; callers never see raw NVP errors.
type Client struct {
	settings *config.SettingsHolder
	resolver CredentialSource
	log      *zap.Logger
	client   *http.Client
	metrics  *obsmetrics.Metrics

	// endpoint overrides the environment endpoint, used by tests.
	endpoint string
}

// CredentialSource yields the active credential set per request so that
// settings reloads take effect without a restart.
type CredentialSource interface {
	Active() (credentialdomain.Credential, error)
}

func NewClient(settings *config.SettingsHolder, resolver CredentialSource, log *zap.Logger) *Client {
	return &Client{
		settings: settings,
		resolver: resolver,
		log:      log.Named("provider.nvp"),
		client:   &http.Client{Timeout: 12 * time.Second},
	}
}

// WithEndpoint points the client at a fixed endpoint. Tests only.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// WithMetrics enables per-call instrumentation.
func (c *Client) WithMetrics(m *obsmetrics.Metrics) *Client {
	c.metrics = m
	return c
}

func (c *Client) SetExpressCheckout(ctx context.Context, req domain.SetCheckoutRequest) (string, error) {
	values := url.Values{}
	values.Set("METHOD", "SetExpressCheckout")
	values.Set("RETURNURL", req.ReturnURL)
	values.Set("CANCELURL", req.CancelURL)
	values.Set("PAYMENTREQUEST_0_AMT", money.Format(req.Amount, req.Currency))
	values.Set("PAYMENTREQUEST_0_CURRENCYCODE", strings.ToUpper(req.Currency))
	values.Set("PAYMENTREQUEST_0_PAYMENTACTION", paymentAction(req.PaymentAction))
	if req.InvoiceNumber != "" {
		values.Set("PAYMENTREQUEST_0_INVNUM", req.InvoiceNumber)
	}
	if req.BrandName != "" {
		values.Set("BRANDNAME", req.BrandName)
	}
	if req.RequireBillingAgreement {
		values.Set("L_BILLINGTYPE0", "MerchantInitiatedBilling")
	}

	resp, err := c.call(ctx, values, nil)
	if err != nil {
		return "", err
	}

	token := resp.Get("TOKEN")
	if token == "" {
		return "", errors.New("provider returned no session token")
	}
	return token, nil
}

func (c *Client) GetExpressCheckoutDetails(ctx context.Context, token string) (*domain.CheckoutDetails, error) {
	values := url.Values{}
	values.Set("METHOD", "GetExpressCheckoutDetails")
	values.Set("TOKEN", token)

	resp, err := c.call(ctx, values, nil)
	if err != nil {
		return nil, err
	}

	return &domain.CheckoutDetails{
		Token:                    resp.Get("TOKEN"),
		PayerID:                  resp.Get("PAYERID"),
		PayerEmail:               resp.Get("EMAIL"),
		BillingAgreementAccepted: resp.Get("BILLINGAGREEMENTACCEPTEDSTATUS") == "1",
	}, nil
}

func (c *Client) CreateBillingAgreement(ctx context.Context, token string) (string, error) {
	values := url.Values{}
	values.Set("METHOD", "CreateBillingAgreement")
	values.Set("TOKEN", token)

	resp, err := c.call(ctx, values, nil)
	if err != nil {
		return "", err
	}

	agreementID := resp.Get("BILLINGAGREEMENTID")
	if agreementID == "" {
		return "", errors.New("provider returned no billing agreement id")
	}
	return agreementID, nil
}

func (c *Client) DoCapture(ctx context.Context, req domain.CaptureRequest) (domain.CaptureOutcome, error) {
	values := url.Values{}
	values.Set("METHOD", "DoExpressCheckoutPayment")
	values.Set("TOKEN", req.Token)
	values.Set("PAYERID", req.PayerID)
	values.Set("PAYMENTREQUEST_0_AMT", money.Format(req.Amount, req.Currency))
	values.Set("PAYMENTREQUEST_0_CURRENCYCODE", strings.ToUpper(req.Currency))
	values.Set("PAYMENTREQUEST_0_PAYMENTACTION", paymentAction(req.PaymentAction))
	if req.InvoiceNumber != "" {
		values.Set("PAYMENTREQUEST_0_INVNUM", req.InvoiceNumber)
	}

	resp, err := c.call(ctx, values, nil)
	if err != nil {
		var fault *domain.Fault
		if errors.As(err, &fault) {
			if fault.IsRetryableDecline() {
				return domain.CaptureOutcome{Status: domain.CaptureRetryableDecline, Fault: fault}, nil
			}
			return domain.CaptureOutcome{Status: domain.CaptureFailed, Fault: fault}, nil
		}
		return domain.CaptureOutcome{}, err
	}

	transactions, err := parseCapturedTransactions(resp, req.Currency)
	if err != nil {
		return domain.CaptureOutcome{}, err
	}
	return domain.CaptureOutcome{Status: domain.CaptureCaptured, Transactions: transactions}, nil
}

func (c *Client) RefundTransaction(ctx context.Context, req domain.RefundRequest) (string, error) {
	values := url.Values{}
	values.Set("METHOD", "RefundTransaction")
	values.Set("TRANSACTIONID", req.TransactionID)
	values.Set("REFUNDTYPE", string(req.Kind))
	if req.Kind == domain.RefundPartial {
		values.Set("AMT", money.Format(req.Amount, req.Currency))
		values.Set("CURRENCYCODE", strings.ToUpper(req.Currency))
	}
	if req.Reason != "" {
		values.Set("NOTE", req.Reason)
	}

	resp, err := c.call(ctx, values, nil)
	if err != nil {
		return "", err
	}

	refundTxnID := resp.Get("REFUNDTRANSACTIONID")
	if refundTxnID == "" {
		return "", errors.New("provider returned no refund transaction id")
	}
	return refundTxnID, nil
}

func (c *Client) TestCredentials(ctx context.Context, cred credentialdomain.Credential) (string, error) {
	values := url.Values{}
	values.Set("METHOD", "GetPalDetails")

	resp, err := c.call(ctx, values, cred)
	if err != nil {
		var fault *domain.Fault
		// 10002 is the provider's definitive "credentials rejected" answer.
		if errors.As(err, &fault) {
			for _, code := range fault.Codes {
				if code == "10002" {
					return "", nil
				}
			}
		}
		return "", err
	}
	return resp.Get("PAL"), nil
}

// call signs and posts one NVP request. cred overrides the active credential
// set when non-nil (credential validation tests candidate credentials).
func (c *Client) call(ctx context.Context, values url.Values, cred credentialdomain.Credential) (url.Values, error) {
	if cred == nil {
		active, err := c.resolver.Active()
		if err != nil {
			return nil, err
		}
		cred = active
	}

	values.Set("VERSION", apiVersion)
	values.Set("USER", cred.Username())
	values.Set("PWD", cred.Password())
	switch typed := cred.(type) {
	case credentialdomain.Signature:
		values.Set("SIGNATURE", typed.Signature())
	case credentialdomain.Certificate:
		if typed.Subject() != "" {
			values.Set("SUBJECT", typed.Subject())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveEndpoint(), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	method := values.Get("METHOD")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.recordCall(method, "error")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.recordCall(method, "error")
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.recordCall(method, "error")
		return nil, fmt.Errorf("provider request failed with status %d", resp.StatusCode)
	}

	parsed, err := url.ParseQuery(string(body))
	if err != nil {
		c.recordCall(method, "error")
		return nil, err
	}

	c.log.Debug("provider call",
		zap.String("method", method),
		zap.String("ack", parsed.Get("ACK")),
		zap.Int64("duration_ms", time.Since(started).Milliseconds()),
	)

	switch parsed.Get("ACK") {
	case "Success", "SuccessWithWarning":
		c.recordCall(method, "ok")
		return parsed, nil
	default:
		c.recordCall(method, "fault")
		return nil, parseFault(parsed)
	}
}

func (c *Client) recordCall(method, result string) {
	if c.metrics != nil {
		c.metrics.RecordProviderCall(method, result)
	}
}

func (c *Client) resolveEndpoint() string {
	if c.endpoint != "" {
		return c.endpoint
	}
	if c.settings.Current().IsSandbox() {
		return sandboxEndpoint
	}
	return liveEndpoint
}

func parseFault(values url.Values) *domain.Fault {
	fault := &domain.Fault{}
	for i := 0; ; i++ {
		code := values.Get("L_ERRORCODE" + strconv.Itoa(i))
		if code == "" {
			break
		}
		fault.Codes = append(fault.Codes, code)
		if fault.Message == "" {
			message := values.Get("L_LONGMESSAGE" + strconv.Itoa(i))
			if message == "" {
				message = values.Get("L_SHORTMESSAGE" + strconv.Itoa(i))
			}
			fault.Message = message
		}
	}
	if len(fault.Codes) == 0 {
		fault.Message = "provider request failed"
	}
	return fault
}

func parseCapturedTransactions(values url.Values, currency string) ([]domain.CapturedTransaction, error) {
	var transactions []domain.CapturedTransaction
	for i := 0; ; i++ {
		prefix := "PAYMENTINFO_" + strconv.Itoa(i) + "_"
		txnID := values.Get(prefix + "TRANSACTIONID")
		if txnID == "" {
			break
		}
		amount, err := money.ParseAmount(values.Get(prefix+"AMT"), currency)
		if err != nil {
			return nil, fmt.Errorf("parse captured amount: %w", err)
		}
		transactions = append(transactions, domain.CapturedTransaction{TransactionID: txnID, Amount: amount})
	}
	if len(transactions) == 0 {
		return nil, errors.New("provider returned no transactions")
	}
	return transactions, nil
}

func paymentAction(action string) string {
	if strings.EqualFold(action, config.PaymentActionAuthorization) {
		return "Authorization"
	}
	return "Sale"
}
