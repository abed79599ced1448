package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository is the order store boundary. Concurrent refunds against one
// order are not guarded here; callers rely on the store's document-level
// update semantics and should lock at the storage boundary if they need
// stronger guarantees.
type Repository interface {
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	UpdateMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, metadata datatypes.JSONMap) error
	SetBillingAgreement(ctx context.Context, db *gorm.DB, id snowflake.ID, agreementID string) error
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error
	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status OrderStatus) error
	AppendNote(ctx context.Context, db *gorm.DB, note *OrderNote) error
}
