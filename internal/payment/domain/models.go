package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	"gorm.io/gorm"
)

// Status mirrors the external processor's lifecycle. This core never moves
// a payment through the gateway; it only reacts to delivered transitions.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

// Payment is owned by the external Payment Processor. CommissionBase is the
// amount override earnings are derived from.
type Payment struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	MemberID       snowflake.ID    `gorm:"not null;index" json:"member_id"`
	CommissionBase decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"commission_base"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status         Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// CompletedEvent is the at-least-once "payment completed" signal from the
// processor.
type CompletedEvent struct {
	PaymentID      snowflake.ID
	MemberID       snowflake.ID
	CommissionBase decimal.Decimal
	Currency       string
}

type Service interface {
	// RecordCompleted persists the completed payment idempotently and
	// distributes its override earnings. Redelivery is safe.
	RecordCompleted(ctx context.Context, event CompletedEvent) ([]earningdomain.Earning, error)

	// Refund marks the payment refunded and cancels its still-pending
	// earnings. Earnings already paid are left for administrative reversal.
	Refund(ctx context.Context, paymentID snowflake.ID) (int64, error)
}

type Repository interface {
	// UpsertCompleted inserts the payment as completed, or promotes an
	// existing pending row. Completed and refunded rows are left untouched.
	UpsertCompleted(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// MarkRefunded takes the transition timestamp from the caller so it
	// comes off the injected clock.
	MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, refundedAt time.Time) (int64, error)
}

var (
	ErrInvalidEvent  = errors.New("invalid_payment_event")
	ErrNotFound      = errors.New("payment_not_found")
	ErrNotRefundable = errors.New("payment_not_refundable")
)
