package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/internal/clock"
	commissiondomain "github.com/uplinehq/upline/internal/commission/domain"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	"github.com/uplinehq/upline/internal/payment/domain"
	"github.com/uplinehq/upline/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	Commission commissiondomain.Service
	Earnings   earningdomain.Repository
	Clock      clock.Clock        `optional:"true"`
	Metrics    *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	commission commissiondomain.Service
	earnings   earningdomain.Repository
	clock      clock.Clock
	metrics    *telemetry.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		repo:       p.Repo,
		commission: p.Commission,
		earnings:   p.Earnings,
		clock:      clk,
		metrics:    p.Metrics,
	}
}

func (s *Service) RecordCompleted(ctx context.Context, event domain.CompletedEvent) ([]earningdomain.Earning, error) {
	if event.PaymentID == 0 || event.MemberID == 0 {
		return nil, domain.ErrInvalidEvent
	}
	if event.CommissionBase.IsNegative() {
		return nil, domain.ErrInvalidEvent
	}
	currency := strings.ToUpper(strings.TrimSpace(event.Currency))
	if len(currency) != 3 {
		return nil, domain.ErrInvalidEvent
	}

	now := s.clock.Now()
	payment := domain.Payment{
		ID:             event.PaymentID,
		MemberID:       event.MemberID,
		CommissionBase: event.CommissionBase,
		Currency:       currency,
		Status:         domain.StatusCompleted,
		CompletedAt:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.UpsertCompleted(ctx, s.db, &payment); err != nil {
		return nil, err
	}
	s.metrics.ObservePaymentCompleted()

	return s.commission.Distribute(ctx, event.PaymentID)
}

func (s *Service) Refund(ctx context.Context, paymentID snowflake.ID) (int64, error) {
	if paymentID == 0 {
		return 0, domain.ErrInvalidEvent
	}

	var cancelled int64
	var applied bool
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.MarkRefunded(ctx, tx, paymentID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			existing, err := s.repo.FindByID(ctx, tx, paymentID)
			if err != nil {
				return err
			}
			if existing == nil {
				return domain.ErrNotFound
			}
			if existing.Status == domain.StatusRefunded {
				// Redelivered refund; pending earnings are already gone.
				return nil
			}
			return domain.ErrNotRefundable
		}

		applied = true
		cancelled, err = s.earnings.CancelPendingByPayment(ctx, tx, paymentID, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	if applied {
		s.metrics.ObserveRefund(cancelled)
		s.log.Info("payment refunded",
			zap.String("payment_id", paymentID.String()),
			zap.Int64("earnings_cancelled", cancelled))
	}
	return cancelled, nil
}
