package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/payflow/internal/checkout/domain"
	"github.com/smallbiznis/payflow/internal/config"
	orderdomain "github.com/smallbiznis/payflow/internal/order/domain"
	refunddomain "github.com/smallbiznis/payflow/internal/refund/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeOrderRepo struct {
	order *orderdomain.Order
}

func (f *fakeOrderRepo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*orderdomain.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, orderdomain.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeOrderRepo) Create(ctx context.Context, db *gorm.DB, order *orderdomain.Order) error {
	f.order = order
	return nil
}

func (f *fakeOrderRepo) UpdateMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, metadata datatypes.JSONMap) error {
	return nil
}

func (f *fakeOrderRepo) SetBillingAgreement(ctx context.Context, db *gorm.DB, id snowflake.ID, agreementID string) error {
	return nil
}

func (f *fakeOrderRepo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error {
	return nil
}

func (f *fakeOrderRepo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status orderdomain.OrderStatus) error {
	return nil
}

func (f *fakeOrderRepo) AppendNote(ctx context.Context, db *gorm.DB, note *orderdomain.OrderNote) error {
	return nil
}

type fakeRefundService struct {
	result refunddomain.RefundResult
	err    error
	amount int64
}

func (f *fakeRefundService) Refund(ctx context.Context, orderID snowflake.ID, amount int64, reason string) (refunddomain.RefundResult, error) {
	f.amount = amount
	return f.result, f.err
}

type fakeCheckoutService struct {
	result checkoutdomain.Result
	err    error
}

func (f *fakeCheckoutService) ProcessPayment(ctx context.Context, sessionKey string, orderID snowflake.ID) (checkoutdomain.Result, error) {
	return f.result, f.err
}

func newTestServer(t *testing.T, refundSvc refunddomain.Service, checkoutSvc checkoutdomain.Service, order *orderdomain.Order) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	node, err := snowflake.NewNode(13)
	require.NoError(t, err)

	s := &Server{
		engine:      engine,
		cfg:         config.Config{ReturnBaseURL: "https://shop.example"},
		settings:    config.NewStaticSettingsHolder(config.DefaultSettings()),
		genID:       node,
		checkoutSvc: checkoutSvc,
		refundSvc:   refundSvc,
		orders:      &fakeOrderRepo{order: order},
	}
	s.registerAPIRoutes()
	return s
}

func testOrder() *orderdomain.Order {
	return &orderdomain.Order{
		ID:          snowflake.ID(7001),
		Number:      "1001",
		TotalAmount: 2500,
		Currency:    "USD",
		Status:      orderdomain.OrderStatusProcessing,
	}
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestCreateRefundParsesDecimalAmount(t *testing.T) {
	refundSvc := &fakeRefundService{
		result: refunddomain.RefundResult{
			TransactionIDs: []string{"RF900"},
			Amount:         1050,
			Currency:       "USD",
		},
	}
	s := newTestServer(t, refundSvc, &fakeCheckoutService{}, testOrder())

	rec := postJSON(t, s, "/api/orders/7001/refunds", gin.H{"amount": "10.50", "reason": "damaged"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, int64(1050), refundSvc.amount)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RF900", resp["refund_transaction_id"])
	assert.Equal(t, "10.50", resp["amount"])
}

func TestCreateRefundRejectsInexactAmount(t *testing.T) {
	refundSvc := &fakeRefundService{}
	s := newTestServer(t, refundSvc, &fakeCheckoutService{}, testOrder())

	rec := postJSON(t, s, "/api/orders/7001/refunds", gin.H{"amount": "10.505"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(0), refundSvc.amount)
}

func TestCreateRefundSurfacesInsufficientFunds(t *testing.T) {
	refundSvc := &fakeRefundService{
		err: &refunddomain.InsufficientRefundableError{TotalRefundable: 500, Currency: "USD"},
	}
	s := newTestServer(t, refundSvc, &fakeCheckoutService{}, testOrder())

	rec := postJSON(t, s, "/api/orders/7001/refunds", gin.H{"amount": "10.00"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "refund_error", resp["error"]["type"])
	assert.Contains(t, resp["error"]["message"], "less than or equal to 5.00")
}

func TestCreateRefundUnknownOrder(t *testing.T) {
	s := newTestServer(t, &fakeRefundService{}, &fakeCheckoutService{}, testOrder())

	rec := postJSON(t, s, "/api/orders/9999/refunds", gin.H{"amount": "10.00"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessPaymentReturnsResult(t *testing.T) {
	checkoutSvc := &fakeCheckoutService{
		result: checkoutdomain.Result{
			Status:   checkoutdomain.StatusSuccess,
			Redirect: "https://shop.example/checkout/order-received/1001",
		},
	}
	s := newTestServer(t, &fakeRefundService{}, checkoutSvc, testOrder())

	rec := postJSON(t, s, "/api/orders/7001/payment", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["result"])
	assert.Equal(t, "https://shop.example/checkout/order-received/1001", resp["redirect"])

	// First contact mints the browsing-session cookie.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}
