package repository

import (
	"context"

	"github.com/uplinehq/upline/internal/referralcode/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, code *domain.ReferralCode) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO referral_codes (code, member_id, created_at)
		 VALUES (?, ?, ?)`,
		code.Code,
		code.MemberID,
		code.CreatedAt,
	).Error
}
