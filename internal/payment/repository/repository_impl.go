package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertCompleted(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, member_id, commission_base, currency, status, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
		WHERE payments.status = ?`,
		payment.ID,
		payment.MemberID,
		payment.CommissionBase,
		payment.Currency,
		domain.StatusCompleted,
		payment.CompletedAt,
		payment.CreatedAt,
		payment.UpdatedAt,
		domain.StatusPending,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Take(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, refundedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, refunded_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.StatusRefunded,
		refundedAt,
		refundedAt,
		id,
		domain.StatusCompleted,
	)
	return result.RowsAffected, result.Error
}
