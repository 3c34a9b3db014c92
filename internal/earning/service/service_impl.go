package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/uplinehq/upline/internal/clock"
	"github.com/uplinehq/upline/internal/earning/domain"
	"github.com/uplinehq/upline/pkg/db/pagination"
	"github.com/uplinehq/upline/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock        `optional:"true"`
	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	metrics *telemetry.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("earning.service"),
		repo:    p.Repo,
		clock:   clk,
		metrics: p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.MemberID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidMember
	}
	if req.Status != "" && !req.Status.IsValid() {
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListByMember(ctx, s.db, req.MemberID, req.Status, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(earning *domain.Earning) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        earning.ID.String(),
			CreatedAt: earning.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	earnings := make([]domain.Earning, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		earnings = append(earnings, *item)
	}

	resp := domain.ListResponse{Earnings: earnings}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Stats recomputes the rollup from the ledger on every read. There is no
// incremental counter to drift out of sync with the earning rows.
func (s *Service) Stats(ctx context.Context, memberID snowflake.ID) (domain.MemberStats, error) {
	if memberID == 0 {
		return domain.MemberStats{}, domain.ErrInvalidMember
	}

	rows, err := s.repo.FetchForStats(ctx, s.db, memberID)
	if err != nil {
		return domain.MemberStats{}, err
	}

	stats := domain.MemberStats{
		TotalEarnings:   decimal.Zero,
		PendingEarnings: decimal.Zero,
		PaidEarnings:    decimal.Zero,
	}
	for _, row := range rows {
		switch row.Level {
		case 1:
			stats.Level1Count++
		case 2:
			stats.Level2Count++
		case 3:
			stats.Level3Count++
		}
		stats.TotalEarnings = stats.TotalEarnings.Add(row.Amount)
		switch row.Status {
		case domain.StatusPending:
			stats.PendingEarnings = stats.PendingEarnings.Add(row.Amount)
		case domain.StatusPaid:
			stats.PaidEarnings = stats.PaidEarnings.Add(row.Amount)
		}
	}
	return stats, nil
}

// MarkPaid transitions a pending earning to paid. The guarded UPDATE makes
// concurrent payout batches race safely; the loser sees zero rows affected.
func (s *Service) MarkPaid(ctx context.Context, earningID snowflake.ID) (domain.Earning, error) {
	affected, err := s.repo.MarkPaid(ctx, s.db, earningID, s.clock.Now())
	if err != nil {
		return domain.Earning{}, err
	}
	if affected == 0 {
		existing, err := s.repo.FindByID(ctx, s.db, earningID)
		if err != nil {
			return domain.Earning{}, err
		}
		if existing == nil {
			return domain.Earning{}, domain.ErrNotFound
		}
		return domain.Earning{}, domain.ErrAlreadyFinal
	}

	updated, err := s.repo.FindByID(ctx, s.db, earningID)
	if err != nil {
		return domain.Earning{}, err
	}
	if updated == nil {
		return domain.Earning{}, domain.ErrNotFound
	}
	s.metrics.ObserveEarningPaid()
	s.log.Info("earning marked paid",
		zap.String("earning_id", earningID.String()),
		zap.String("member_id", updated.MemberID.String()))
	return *updated, nil
}
