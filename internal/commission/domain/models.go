package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
)

// Override rates are fixed per level. They are written onto every earning
// row so the ledger stays self-auditing if rates ever become configurable.
var (
	RateLevel1 = decimal.RequireFromString("0.10")
	RateLevel2 = decimal.RequireFromString("0.05")
	RateLevel3 = decimal.RequireFromString("0.02")
)

// RateForLevel returns the override rate for levels 1 through 3.
func RateForLevel(level int) (decimal.Decimal, bool) {
	switch level {
	case 1:
		return RateLevel1, true
	case 2:
		return RateLevel2, true
	case 3:
		return RateLevel3, true
	default:
		return decimal.Zero, false
	}
}

type Service interface {
	// Distribute converts one completed payment into its override earnings,
	// one row per existing ancestor level, exactly once. It is safe to call
	// any number of times for the same payment.
	Distribute(ctx context.Context, paymentID snowflake.ID) ([]earningdomain.Earning, error)
}

var (
	ErrInvalidPayment     = errors.New("invalid_payment")
	ErrPaymentNotFound    = errors.New("payment_not_found")
	ErrPaymentNotComplete = errors.New("payment_not_completed")
)
