package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/payflow/internal/order/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, number, total_amount, currency, status, billing_agreement_id,
			metadata, paid_at, created_at, updated_at
		 FROM orders
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, number, total_amount, currency, status, billing_agreement_id,
			metadata, paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Number,
		order.TotalAmount,
		order.Currency,
		order.Status,
		order.BillingAgreementID,
		order.Metadata,
		order.PaidAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) UpdateMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, metadata datatypes.JSONMap) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET metadata = ?, updated_at = ?
		 WHERE id = ?`,
		metadata,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) SetBillingAgreement(ctx context.Context, db *gorm.DB, id snowflake.ID, agreementID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET billing_agreement_id = ?, updated_at = ?
		 WHERE id = ?`,
		agreementID,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND paid_at IS NULL`,
		domain.OrderStatusProcessing,
		paidAt,
		paidAt,
		id,
	).Error
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.OrderStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) AppendNote(ctx context.Context, db *gorm.DB, note *domain.OrderNote) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_notes (id, order_id, note, created_at)
		 VALUES (?, ?, ?, ?)`,
		note.ID,
		note.OrderID,
		note.Note,
		note.CreatedAt,
	).Error
}
