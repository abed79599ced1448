package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusFailed     OrderStatus = "failed"
)

// Order is the host platform's order record as this gateway sees it. The
// payment ledger lives inside Metadata; notes are append-only audit text.
type Order struct {
	ID                 snowflake.ID      `json:"id" gorm:"primaryKey"`
	Number             string            `json:"number" gorm:"type:text;not null;uniqueIndex"`
	TotalAmount        int64             `json:"total_amount" gorm:"not null"`
	Currency           string            `json:"currency" gorm:"type:text;not null"`
	Status             OrderStatus       `json:"status" gorm:"type:text;not null"`
	BillingAgreementID string            `json:"billing_agreement_id" gorm:"type:text"`
	Metadata           datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	PaidAt             *time.Time        `json:"paid_at"`
	CreatedAt          time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Order) TableName() string { return "orders" }

// IsPaid reports whether payment has already been applied to the order.
func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}

// OrderNote is one append-only audit line on an order.
type OrderNote struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID   snowflake.ID `json:"order_id" gorm:"not null;index"`
	Note      string       `json:"note" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OrderNote) TableName() string { return "order_notes" }
