package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/payflow/internal/order/domain"
	"github.com/smallbiznis/payflow/pkg/money"
)

type createOrderRequest struct {
	Number   string `json:"number" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Currency string `json:"currency" binding:"required"`
}

// CreateOrder registers a host-platform order with the gateway. The host
// calls this when the shopper places the order, before the payment call.
func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	amount, err := money.ParseAmount(req.Amount, req.Currency)
	if err != nil || amount < 0 {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a non-negative decimal"))
		return
	}

	now := time.Now().UTC()
	order := &orderdomain.Order{
		ID:          s.genID.Generate(),
		Number:      req.Number,
		TotalAmount: amount,
		Currency:    req.Currency,
		Status:      orderdomain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.Create(c.Request.Context(), s.db, order); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (s *Server) GetOrder(c *gin.Context) {
	orderID, err := snowflake.ParseString(c.Param("order_id"))
	if err != nil {
		AbortWithError(c, newValidationError("order_id", "invalid_order_id", "order id must be numeric"))
		return
	}

	order, err := s.orders.Find(c.Request.Context(), s.db, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
