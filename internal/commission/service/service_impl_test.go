package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uplinehq/upline/internal/clock"
	"github.com/uplinehq/upline/internal/commission/domain"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	earningrepo "github.com/uplinehq/upline/internal/earning/repository"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
	memberrepo "github.com/uplinehq/upline/internal/member/repository"
	paymentdomain "github.com/uplinehq/upline/internal/payment/domain"
	paymentrepo "github.com/uplinehq/upline/internal/payment/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&memberdomain.Member{},
		&paymentdomain.Payment{},
		&earningdomain.Earning{},
	))
	// SQLite requires this exact unique index for ON CONFLICT to work.
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_earnings_payment_level ON earnings(payment_id, level)",
	).Error)
	return db
}

var testClock = clock.NewFakeClock(time.Date(2026, 3, 3, 8, 15, 0, 0, time.UTC))

func newTestService(db *gorm.DB, node *snowflake.Node) domain.Service {
	return New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Members:  memberrepo.Provide(),
		Payments: paymentrepo.Provide(),
		Earnings: earningrepo.Provide(),
		Clock:    testClock,
	})
}

func seedMember(t *testing.T, db *gorm.DB, node *snowflake.Node, code string, l1, l2, l3 *snowflake.ID) memberdomain.Member {
	t.Helper()
	member := memberdomain.Member{
		ID:           node.Generate(),
		Name:         "Member " + code,
		Email:        code + "@example.com",
		ReferralCode: code,
		AncestorL1:   l1,
		AncestorL2:   l2,
		AncestorL3:   l3,
		Metadata:     datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(&member).Error)
	return member
}

func seedCompletedPayment(t *testing.T, db *gorm.DB, node *snowflake.Node, memberID snowflake.ID, base string, currency string) paymentdomain.Payment {
	t.Helper()
	now := time.Now().UTC()
	payment := paymentdomain.Payment{
		ID:             node.Generate(),
		MemberID:       memberID,
		CommissionBase: decimal.RequireFromString(base),
		Currency:       currency,
		Status:         paymentdomain.StatusCompleted,
		CompletedAt:    &now,
	}
	require.NoError(t, db.Create(&payment).Error)
	return payment
}

func TestDistribute_FullChainThreeLevels(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(db, node)

	great := seedMember(t, db, node, "GREAT123", nil, nil, nil)
	grand := seedMember(t, db, node, "GRAND123", &great.ID, nil, nil)
	parent := seedMember(t, db, node, "PARENT12", &grand.ID, &great.ID, nil)
	payer := seedMember(t, db, node, "PAYER123", &parent.ID, &grand.ID, &great.ID)

	payment := seedCompletedPayment(t, db, node, payer.ID, "1000000", "USD")

	earnings, err := svc.Distribute(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Len(t, earnings, 3)

	byLevel := map[int]earningdomain.Earning{}
	for _, e := range earnings {
		byLevel[e.Level] = e
	}

	assert.Equal(t, parent.ID, byLevel[1].MemberID)
	assert.True(t, byLevel[1].Amount.Equal(decimal.RequireFromString("100000")), byLevel[1].Amount.String())
	assert.True(t, byLevel[1].Rate.Equal(domain.RateLevel1))

	assert.Equal(t, grand.ID, byLevel[2].MemberID)
	assert.True(t, byLevel[2].Amount.Equal(decimal.RequireFromString("50000")), byLevel[2].Amount.String())

	assert.Equal(t, great.ID, byLevel[3].MemberID)
	assert.True(t, byLevel[3].Amount.Equal(decimal.RequireFromString("20000")), byLevel[3].Amount.String())

	for _, e := range earnings {
		assert.Equal(t, earningdomain.StatusPending, e.Status)
		assert.Equal(t, payer.ID, e.SourceMemberID)
		assert.Equal(t, "USD", e.Currency)
		assert.True(t, e.CreatedAt.Equal(testClock.Now()))
	}
}

func TestDistribute_Idempotent(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(db, node)

	root := seedMember(t, db, node, "ROOT1234", nil, nil, nil)
	payer := seedMember(t, db, node, "PAYER123", &root.ID, nil, nil)
	payment := seedCompletedPayment(t, db, node, payer.ID, "1000", "USD")

	first, err := svc.Distribute(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	for i := 0; i < 5; i++ {
		again, err := svc.Distribute(context.Background(), payment.ID)
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, first[0].ID, again[0].ID)
		assert.True(t, first[0].Amount.Equal(again[0].Amount))
	}

	var count int64
	db.Model(&earningdomain.Earning{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestDistribute_PartialChainSkipsMissingLevels(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(db, node)

	root := seedMember(t, db, node, "ROOT1234", nil, nil, nil)
	payer := seedMember(t, db, node, "PAYER123", &root.ID, nil, nil)
	payment := seedCompletedPayment(t, db, node, payer.ID, "500000", "USD")

	earnings, err := svc.Distribute(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Len(t, earnings, 1)
	assert.Equal(t, 1, earnings[0].Level)
	assert.Equal(t, root.ID, earnings[0].MemberID)
	assert.True(t, earnings[0].Amount.Equal(decimal.RequireFromString("50000")))
}

func TestDistribute_NoAncestorsWritesNothing(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(db, node)

	payer := seedMember(t, db, node, "LONER123", nil, nil, nil)
	payment := seedCompletedPayment(t, db, node, payer.ID, "500000", "USD")

	earnings, err := svc.Distribute(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Empty(t, earnings)
}

func TestDistribute_RoundsToCurrencyPrecision(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(db, node)

	root := seedMember(t, db, node, "ROOT1234", nil, nil, nil)
	payer := seedMember(t, db, node, "PAYER123", &root.ID, nil, nil)

	usd := seedCompletedPayment(t, db, node, payer.ID, "100.55", "USD")
	earnings, err := svc.Distribute(context.Background(), usd.ID)
	require.NoError(t, err)
	require.Len(t, earnings, 1)
	// 100.55 * 0.10 = 10.055, rounded to cents.
	assert.True(t, earnings[0].Amount.Equal(decimal.RequireFromString("10.06")), earnings[0].Amount.String())

	jpy := seedCompletedPayment(t, db, node, payer.ID, "999", "JPY")
	earnings, err = svc.Distribute(context.Background(), jpy.ID)
	require.NoError(t, err)
	require.Len(t, earnings, 1)
	// 999 * 0.10 = 99.9, rounded to whole yen.
	assert.True(t, earnings[0].Amount.Equal(decimal.RequireFromString("100")), earnings[0].Amount.String())
}

func TestDistribute_MissingPayment(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(db, node)

	_, err := svc.Distribute(context.Background(), node.Generate())
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestDistribute_PendingPaymentRejected(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(db, node)

	payer := seedMember(t, db, node, "PAYER123", nil, nil, nil)
	payment := paymentdomain.Payment{
		ID:             node.Generate(),
		MemberID:       payer.ID,
		CommissionBase: decimal.RequireFromString("100"),
		Currency:       "USD",
		Status:         paymentdomain.StatusPending,
	}
	require.NoError(t, db.Create(&payment).Error)

	_, err := svc.Distribute(context.Background(), payment.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotComplete)
}
