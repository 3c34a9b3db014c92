package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ReferralCode reserves one recruitment code. The primary key is the code
// itself; uniqueness is the storage constraint, never an application check.
type ReferralCode struct {
	Code      string       `gorm:"primaryKey;type:varchar(16)" json:"code"`
	MemberID  snowflake.ID `gorm:"not null;index" json:"member_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ReferralCode) TableName() string { return "referral_codes" }

type Service interface {
	// Allocate reserves a unique code for memberID inside the caller's
	// transaction. A non-empty candidate is tried first; on collision the
	// service falls back to random generation with bounded retries.
	Allocate(ctx context.Context, tx *gorm.DB, memberID snowflake.ID, candidate string) (string, error)

	// Normalize canonicalizes a caller-supplied code or recruiter reference.
	Normalize(candidate string) (string, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, code *ReferralCode) error
}

var (
	ErrInvalidMember = errors.New("invalid_member")
	ErrInvalidCode   = errors.New("invalid_code")
	ErrCodeExhausted = errors.New("code_generation_exhausted")
)
