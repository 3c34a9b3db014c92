package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/internal/member/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (id, name, email, referral_code, ancestor_l1, ancestor_l2, ancestor_l3, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.Name,
		member.Email,
		member.ReferralCode,
		member.AncestorL1,
		member.AncestorL2,
		member.AncestorL3,
		member.Metadata,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, referral_code, ancestor_l1, ancestor_l2, ancestor_l3, metadata, created_at, updated_at
		 FROM members WHERE id = ?`,
		id,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, referral_code, ancestor_l1, ancestor_l2, ancestor_l3, metadata, created_at, updated_at
		 FROM members WHERE referral_code = ?`,
		code,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, referral_code, ancestor_l1, ancestor_l2, ancestor_l3, metadata, created_at, updated_at
		 FROM members WHERE email = ?`,
		email,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) UpdateReferralCode(ctx context.Context, db *gorm.DB, id snowflake.ID, code string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE members SET referral_code = ?, updated_at = ? WHERE id = ?`,
		code,
		updatedAt,
		id,
	).Error
}
