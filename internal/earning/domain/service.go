package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListRequest struct {
	MemberID  snowflake.ID
	Status    Status // empty means all statuses
	PageToken string
	PageSize  int
}

type ListResponse struct {
	pagination.PageInfo
	Earnings []Earning `json:"earnings"`
}

type Service interface {
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Stats(ctx context.Context, memberID snowflake.ID) (MemberStats, error)
	MarkPaid(ctx context.Context, earningID snowflake.ID) (Earning, error)
}

type Repository interface {
	// Insert writes one earning row, ignoring duplicate (payment_id, level)
	// pairs. It reports whether a row was actually inserted.
	Insert(ctx context.Context, db *gorm.DB, earning *Earning) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Earning, error)
	ListByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]Earning, error)
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, status Status, page pagination.Pagination) ([]*Earning, error)
	// FetchForStats returns every non-cancelled earning for the member as
	// beneficiary; the rollup is summed in the service with decimal math.
	FetchForStats(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]Earning, error)
	// MarkPaid and CancelPendingByPayment take the transition timestamp from
	// the caller so it comes off the injected clock.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (int64, error)
	CancelPendingByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, cancelledAt time.Time) (int64, error)
}
