package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Member, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Member, error)
	// UpdateReferralCode repoints the member's recruiting code so recruiter
	// resolution picks up codes allocated outside the signup flow.
	UpdateReferralCode(ctx context.Context, db *gorm.DB, id snowflake.ID, code string, updatedAt time.Time) error
}

var (
	ErrInvalidID = errors.New("invalid_member_id")
	ErrNotFound  = errors.New("member_not_found")
)
