package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uplinehq/upline/internal/referralcode/domain"
	"github.com/uplinehq/upline/internal/referralcode/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ReferralCode{}))
	return db
}

func newTestService(repo domain.Repository) *Service {
	svc := New(Params{
		Log:  zap.NewNop(),
		Repo: repo,
	})
	return svc.(*Service)
}

func TestNormalize(t *testing.T) {
	svc := newTestService(repository.Provide())

	code, err := svc.Normalize("  ab12cd  ")
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", code)

	_, err = svc.Normalize("ab")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = svc.Normalize("has space")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = svc.Normalize("")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestAllocate_Candidate(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(repository.Provide())
	node, _ := snowflake.NewNode(1)

	code, err := svc.Allocate(context.Background(), db, node.Generate(), " vip42 ")
	require.NoError(t, err)
	assert.Equal(t, "VIP42", code)

	var count int64
	db.Model(&domain.ReferralCode{}).Where("code = ?", "VIP42").Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAllocate_CandidateTakenFallsBackToRandom(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(repository.Provide())
	node, _ := snowflake.NewNode(1)

	first, err := svc.Allocate(context.Background(), db, node.Generate(), "VIP42")
	require.NoError(t, err)

	second, err := svc.Allocate(context.Background(), db, node.Generate(), "VIP42")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Len(t, second, 8)

	var count int64
	db.Model(&domain.ReferralCode{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestAllocate_InvalidCandidateRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(repository.Provide())
	node, _ := snowflake.NewNode(1)

	_, err := svc.Allocate(context.Background(), db, node.Generate(), "no!")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestAllocate_RequiresMember(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(repository.Provide())

	_, err := svc.Allocate(context.Background(), db, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidMember)
}

// alwaysConflictRepo simulates a saturated code space.
type alwaysConflictRepo struct{}

func (alwaysConflictRepo) Insert(ctx context.Context, db *gorm.DB, code *domain.ReferralCode) error {
	return errors.New("UNIQUE constraint failed: referral_codes.code")
}

func TestAllocate_ExhaustedAfterBoundedRetries(t *testing.T) {
	svc := newTestService(alwaysConflictRepo{})
	node, _ := snowflake.NewNode(1)

	_, err := svc.Allocate(context.Background(), nil, node.Generate(), "")
	assert.ErrorIs(t, err, domain.ErrCodeExhausted)
}

// memoryRepo enforces uniqueness under concurrent allocation the way the
// database unique index would.
type memoryRepo struct {
	mu    sync.Mutex
	codes map[string]snowflake.ID
}

func (r *memoryRepo) Insert(ctx context.Context, db *gorm.DB, code *domain.ReferralCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codes[code.Code]; exists {
		return errors.New("UNIQUE constraint failed: referral_codes.code")
	}
	r.codes[code.Code] = code.MemberID
	return nil
}

func TestAllocate_ConcurrentAllocationsNeverCollide(t *testing.T) {
	repo := &memoryRepo{codes: make(map[string]snowflake.ID)}
	svc := newTestService(repo)
	node, _ := snowflake.NewNode(1)

	const workers = 64
	results := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Everyone races for the same vanity code; losers must end up
			// with distinct random ones.
			code, err := svc.Allocate(context.Background(), nil, node.Generate(), "POPULAR")
			assert.NoError(t, err)
			results <- code
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, workers)
	for code := range results {
		assert.False(t, seen[code], "code %s assigned twice", code)
		seen[code] = true
	}
	assert.Len(t, seen, workers)
	assert.True(t, seen["POPULAR"])
}
