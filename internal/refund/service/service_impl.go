package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/payflow/internal/audit/domain"
	ledgerdomain "github.com/smallbiznis/payflow/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/payflow/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/payflow/internal/order/domain"
	providerdomain "github.com/smallbiznis/payflow/internal/provider/domain"
	"github.com/smallbiznis/payflow/internal/refund/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Client   providerdomain.Client
	Orders   orderdomain.Repository
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	client   providerdomain.Client
	orders   orderdomain.Repository
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("refund.service"),
		genID:    p.GenID,
		client:   p.Client,
		orders:   p.Orders,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// Refund walks the order's transaction ledger in three passes:
//
//  1. an entry whose open amount equals the request exactly,
//  2. the first entry whose open amount exceeds the request,
//  3. split the request across entries first-to-last.
//
// The pass order keeps refunds pinned to single transactions whenever
// possible, so provider-side reconciliation stays one-to-one.
func (s *Service) Refund(ctx context.Context, orderID snowflake.ID, amount int64, reason string) (domain.RefundResult, error) {
	if amount <= 0 {
		return domain.RefundResult{}, domain.ErrInvalidAmount
	}

	order, err := s.orders.Find(ctx, s.db, orderID)
	if err != nil {
		return domain.RefundResult{}, err
	}

	ledger, err := ledgerdomain.FromMetadata(order.Metadata)
	if err != nil {
		return domain.RefundResult{}, err
	}
	if len(ledger) == 0 {
		s.recordRefund("not_refundable")
		return domain.RefundResult{}, domain.ErrNotRefundable
	}

	result := domain.RefundResult{Amount: amount, Currency: order.Currency}

	// Pass 1: exact match against a single entry's open amount.
	for i := range ledger {
		if ledger[i].Refundable() == amount {
			kind := providerdomain.RefundPartial
			if ledger[i].RefundedAmount == 0 {
				kind = providerdomain.RefundFull
			}
			txnID, err := s.refundEntry(ctx, order, ledger, i, amount, kind, reason)
			if err != nil {
				s.failed(ctx, order, err)
				return result, err
			}
			result.TransactionIDs = append(result.TransactionIDs, txnID)
			return s.finish(ctx, order, ledger, result)
		}
	}

	// Pass 2: first entry with spare capacity.
	for i := range ledger {
		if ledger[i].Refundable() > amount {
			txnID, err := s.refundEntry(ctx, order, ledger, i, amount, providerdomain.RefundPartial, reason)
			if err != nil {
				s.failed(ctx, order, err)
				return result, err
			}
			result.TransactionIDs = append(result.TransactionIDs, txnID)
			return s.finish(ctx, order, ledger, result)
		}
	}

	// Pass 3: split across entries. Each slice is persisted as it lands, so
	// a mid-walk provider failure leaves the completed slices refunded and
	// recorded rather than rolled back.
	total := ledger.TotalRefundable()
	if total < amount {
		s.recordRefund("insufficient")
		return domain.RefundResult{}, &domain.InsufficientRefundableError{
			TotalRefundable: total,
			Currency:        order.Currency,
		}
	}

	remaining := amount
	for i := range ledger {
		open := ledger[i].Refundable()
		if open <= 0 {
			continue
		}
		slice := remaining
		if open < slice {
			slice = open
		}

		kind := providerdomain.RefundPartial
		if ledger[i].RefundedAmount == 0 && slice == ledger[i].Amount {
			kind = providerdomain.RefundFull
		}
		txnID, err := s.refundEntry(ctx, order, ledger, i, slice, kind, reason)
		if err != nil {
			s.failed(ctx, order, err)
			result.Amount = amount - remaining
			return result, err
		}
		result.TransactionIDs = append(result.TransactionIDs, txnID)

		remaining -= slice
		if remaining == 0 {
			break
		}
	}

	return s.finish(ctx, order, ledger, result)
}

// refundEntry refunds one slice against one ledger entry: remote call first,
// then the updated ledger and an order note are persisted before moving on.
func (s *Service) refundEntry(ctx context.Context, order *orderdomain.Order, ledger ledgerdomain.Ledger, idx int, amount int64, kind providerdomain.RefundKind, reason string) (string, error) {
	refundTxnID, err := s.client.RefundTransaction(ctx, providerdomain.RefundRequest{
		TransactionID: ledger[idx].TransactionID,
		Amount:        amount,
		Currency:      order.Currency,
		Kind:          kind,
		Reason:        reason,
	})
	if err != nil {
		return "", err
	}

	ledger[idx].RefundedAmount += amount

	metadata, err := ledger.ApplyTo(order.Metadata)
	if err != nil {
		return refundTxnID, err
	}
	if err := s.orders.UpdateMetadata(ctx, s.db, order.ID, metadata); err != nil {
		return refundTxnID, err
	}
	order.Metadata = metadata

	note := &orderdomain.OrderNote{
		ID:        s.genID.Generate(),
		OrderID:   order.ID,
		Note:      fmt.Sprintf("Refund completed; transaction ID = %s", refundTxnID),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.orders.AppendNote(ctx, s.db, note); err != nil {
		return refundTxnID, err
	}

	s.log.Info("refund slice completed",
		zap.Int64("order_id", int64(order.ID)),
		zap.String("capture_transaction_id", ledger[idx].TransactionID),
		zap.String("refund_transaction_id", refundTxnID),
		zap.Int64("amount", amount),
	)
	return refundTxnID, nil
}

func (s *Service) finish(ctx context.Context, order *orderdomain.Order, ledger ledgerdomain.Ledger, result domain.RefundResult) (domain.RefundResult, error) {
	if ledger.TotalRefundable() == 0 {
		if err := s.orders.SetStatus(ctx, s.db, order.ID, orderdomain.OrderStatusRefunded); err != nil {
			return result, err
		}
	}

	_ = s.auditSvc.Log(ctx, "refund.completed", "order", order.ID.String(), map[string]any{
		"amount":          result.Amount,
		"currency":        result.Currency,
		"transaction_ids": result.TransactionIDs,
	})
	s.recordRefund("completed")
	return result, nil
}

func (s *Service) failed(ctx context.Context, order *orderdomain.Order, cause error) {
	_ = s.auditSvc.Log(ctx, "refund.failed", "order", order.ID.String(), map[string]any{
		"error": cause.Error(),
	})
	s.recordRefund("failed")
}

func (s *Service) recordRefund(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRefund(outcome)
	}
}
