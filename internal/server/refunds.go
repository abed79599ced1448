package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/payflow/pkg/money"
)

type createRefundRequest struct {
	// Amount is an exact decimal string in the order's currency, e.g.
	// "12.34" or "1500" for a zero-decimal currency.
	Amount string `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

type createRefundResponse struct {
	RefundTransactionID string   `json:"refund_transaction_id"`
	TransactionIDs      []string `json:"transaction_ids"`
	Amount              string   `json:"amount"`
	Currency            string   `json:"currency"`
}

// CreateRefund refunds part or all of an order's captured payment.
func (s *Server) CreateRefund(c *gin.Context) {
	orderID, err := snowflake.ParseString(c.Param("order_id"))
	if err != nil {
		AbortWithError(c, newValidationError("order_id", "invalid_order_id", "order id must be numeric"))
		return
	}

	var req createRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order, err := s.orders.Find(c.Request.Context(), s.db, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	amount, err := money.ParseAmount(req.Amount, order.Currency)
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be an exact decimal in the order currency"))
		return
	}

	result, err := s.refundSvc.Refund(c.Request.Context(), orderID, amount, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := createRefundResponse{
		TransactionIDs: result.TransactionIDs,
		Amount:         money.Format(result.Amount, result.Currency),
		Currency:       result.Currency,
	}
	if len(result.TransactionIDs) > 0 {
		resp.RefundTransactionID = result.TransactionIDs[len(result.TransactionIDs)-1]
	}
	c.JSON(http.StatusOK, resp)
}
