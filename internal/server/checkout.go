package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/payflow/internal/session"
	sessiondomain "github.com/smallbiznis/payflow/internal/session/domain"
	"github.com/smallbiznis/payflow/pkg/money"
)

type startCheckoutRequest struct {
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	InvoiceNumber string `json:"invoice_number"`
}

type startCheckoutResponse struct {
	Redirect string `json:"redirect"`
}

// StartCheckout begins a hosted checkout straight from the cart, before any
// order exists. The shopper is redirected out to the provider's page.
func (s *Server) StartCheckout(c *gin.Context) {
	var req startCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	amount, err := money.ParseAmount(req.Amount, req.Currency)
	if err != nil || amount <= 0 {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a positive decimal"))
		return
	}

	key := s.sessionKey(c)
	redirect, err := s.sessions.Start(c.Request.Context(), key, session.StartParams{
		Amount:        amount,
		Currency:      req.Currency,
		InvoiceNumber: req.InvoiceNumber,
		Source:        sessiondomain.SourceCheckout,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, startCheckoutResponse{Redirect: redirect})
}

// CheckoutReturn is where the provider bounces the shopper's browser after
// the hosted page. It records the payer reference and forwards to the review
// step; payment itself happens on the explicit payment call.
func (s *Server) CheckoutReturn(c *gin.Context) {
	key := s.sessionKey(c)
	token := c.Query("token")
	payerID := c.Query("PayerID")

	sess, err := s.sessions.HandleReturn(c.Request.Context(), key, token, payerID)
	if err != nil {
		// Session gone or token mismatch: back to the cart to start over.
		c.Redirect(http.StatusFound, s.cfg.ReturnBaseURL+"/cart")
		return
	}

	target := s.cfg.ReturnBaseURL + "/checkout/review"
	if sess.Source == sessiondomain.SourceOrder && sess.OrderID != 0 {
		target = s.cfg.ReturnBaseURL + "/checkout/order-pay/" + sess.OrderID.String()
	}
	c.Redirect(http.StatusFound, target)
}

// CheckoutCancel handles the shopper backing out of the hosted page.
func (s *Server) CheckoutCancel(c *gin.Context) {
	key := s.sessionKey(c)
	if err := s.sessions.Clear(c.Request.Context(), key); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, s.cfg.ReturnBaseURL+"/cart")
}

// ProcessPayment is the payment entry point for an order.
func (s *Server) ProcessPayment(c *gin.Context) {
	orderID, err := snowflake.ParseString(c.Param("order_id"))
	if err != nil {
		AbortWithError(c, newValidationError("order_id", "invalid_order_id", "order id must be numeric"))
		return
	}

	key := s.sessionKey(c)
	result, err := s.checkoutSvc.ProcessPayment(c.Request.Context(), key, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
