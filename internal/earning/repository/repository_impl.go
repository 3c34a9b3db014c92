package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/internal/earning/domain"
	"github.com/uplinehq/upline/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, earning *domain.Earning) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO earnings (
			id, payment_id, level, member_id, source_member_id, rate, amount, currency, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (payment_id, level) DO NOTHING`,
		earning.ID,
		earning.PaymentID,
		earning.Level,
		earning.MemberID,
		earning.SourceMemberID,
		earning.Rate,
		earning.Amount,
		earning.Currency,
		earning.Status,
		earning.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Earning, error) {
	var earning domain.Earning
	err := db.WithContext(ctx).
		Model(&domain.Earning{}).
		Where("id = ?", id).
		Take(&earning).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &earning, nil
}

func (r *repo) ListByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]domain.Earning, error) {
	var earnings []domain.Earning
	err := db.WithContext(ctx).
		Model(&domain.Earning{}).
		Where("payment_id = ?", paymentID).
		Order("level asc").
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, status domain.Status, page pagination.Pagination) ([]*domain.Earning, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Earning{}).
		Where("member_id = ?", memberID)
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, id)
	}
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	var earnings []*domain.Earning
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *repo) FetchForStats(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]domain.Earning, error) {
	var earnings []domain.Earning
	err := db.WithContext(ctx).
		Model(&domain.Earning{}).
		Select("level", "status", "amount").
		Where("member_id = ? AND status <> ?", memberID, domain.StatusCancelled).
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE earnings SET status = ?, paid_at = ? WHERE id = ? AND status = ?`,
		domain.StatusPaid,
		paidAt,
		id,
		domain.StatusPending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) CancelPendingByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, cancelledAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE earnings SET status = ?, cancelled_at = ? WHERE payment_id = ? AND status = ?`,
		domain.StatusCancelled,
		cancelledAt,
		paymentID,
		domain.StatusPending,
	)
	return result.RowsAffected, result.Error
}
