package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status is the earning lifecycle. Both paid and cancelled are terminal;
// rows are never deleted, only transitioned.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	default:
		return false
	}
}

// Earning is one payout obligation: a single level's override on one
// payment. The (payment_id, level) pair is unique; re-deliveries of the
// same payment event collapse onto the existing row.
type Earning struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	PaymentID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_earnings_payment_level,priority:1" json:"payment_id"`
	Level          int             `gorm:"not null;uniqueIndex:ux_earnings_payment_level,priority:2" json:"level"`
	MemberID       snowflake.ID    `gorm:"not null;index" json:"member_id"`
	SourceMemberID snowflake.ID    `gorm:"not null;index" json:"source_member_id"`
	Rate           decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"rate"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status         Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
}

// TableName sets the database table name.
func (Earning) TableName() string { return "earnings" }

// MemberStats is the recompute-on-read rollup over a member's earnings as
// beneficiary. Cancelled rows count toward nothing.
type MemberStats struct {
	Level1Count     int             `json:"level1_count"`
	Level2Count     int             `json:"level2_count"`
	Level3Count     int             `json:"level3_count"`
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
	PendingEarnings decimal.Decimal `json:"pending_earnings"`
	PaidEarnings    decimal.Decimal `json:"paid_earnings"`
}

var (
	ErrInvalidMember = errors.New("invalid_member")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrNotFound      = errors.New("earning_not_found")
	ErrAlreadyFinal  = errors.New("earning_already_final")
)
