package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/internal/clock"
	"github.com/uplinehq/upline/internal/commission/domain"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
	paymentdomain "github.com/uplinehq/upline/internal/payment/domain"
	"github.com/uplinehq/upline/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Members  memberdomain.Repository
	Payments paymentdomain.Repository
	Earnings earningdomain.Repository
	Clock    clock.Clock        `optional:"true"`
	Metrics  *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	members  memberdomain.Repository
	payments paymentdomain.Repository
	earnings earningdomain.Repository
	clock    clock.Clock
	metrics  *telemetry.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("commission.service"),
		genID:    p.GenID,
		members:  p.Members,
		payments: p.Payments,
		earnings: p.Earnings,
		clock:    clk,
		metrics:  p.Metrics,
	}
}

// Distribute writes one earning per non-null ancestor level of the paying
// member, all inside one transaction. The (payment_id, level) unique index
// plus skip-on-conflict inserts make redelivery collapse onto the first
// run's rows; no application-level dedup cache is involved.
func (s *Service) Distribute(ctx context.Context, paymentID snowflake.ID) ([]earningdomain.Earning, error) {
	if paymentID == 0 {
		return nil, domain.ErrInvalidPayment
	}

	payment, err := s.payments.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	if payment.Status != paymentdomain.StatusCompleted {
		return nil, domain.ErrPaymentNotComplete
	}

	payer, err := s.members.FindByID(ctx, s.db, payment.MemberID)
	if err != nil {
		return nil, err
	}
	if payer == nil {
		return nil, memberdomain.ErrNotFound
	}

	precision := domain.PrecisionForCurrency(payment.Currency)
	var insertedLevels []int

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		for i, ancestor := range payer.Ancestors() {
			if ancestor == nil {
				// Fewer generations than the cap is not an error.
				continue
			}
			level := i + 1
			rate, ok := domain.RateForLevel(level)
			if !ok {
				continue
			}
			wrote, err := s.earnings.Insert(ctx, tx, &earningdomain.Earning{
				ID:             s.genID.Generate(),
				PaymentID:      payment.ID,
				Level:          level,
				MemberID:       *ancestor,
				SourceMemberID: payer.ID,
				Rate:           rate,
				Amount:         payment.CommissionBase.Mul(rate).Round(precision),
				Currency:       payment.Currency,
				Status:         earningdomain.StatusPending,
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}
			if wrote {
				insertedLevels = append(insertedLevels, level)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(insertedLevels) > 0 {
		for _, level := range insertedLevels {
			s.metrics.ObserveEarningCreated(level)
		}
		s.log.Info("commission distributed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("member_id", payer.ID.String()),
			zap.Int("earnings", len(insertedLevels)))
	} else {
		s.log.Debug("commission already distributed",
			zap.String("payment_id", payment.ID.String()))
	}

	return s.earnings.ListByPayment(ctx, s.db, payment.ID)
}
