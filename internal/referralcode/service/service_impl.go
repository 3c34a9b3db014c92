package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/internal/clock"
	"github.com/uplinehq/upline/internal/referralcode/domain"
	"github.com/uplinehq/upline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Alphabet omits I, O, 0 and 1 to keep codes unambiguous when read aloud.
const (
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	generatedLength = 8
	maxAttempts     = 10
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4,16}$`)

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System
	}
	return &Service{
		log:   p.Log.Named("referralcode.service"),
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) Normalize(candidate string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(candidate))
	if !codePattern.MatchString(code) {
		return "", domain.ErrInvalidCode
	}
	return code, nil
}

// Allocate claims a unique code by inserting against the primary-key
// constraint and retrying on conflict. Uniqueness is never pre-checked;
// the losing side of a race sees a duplicate-key error and draws again.
func (s *Service) Allocate(ctx context.Context, tx *gorm.DB, memberID snowflake.ID, candidate string) (string, error) {
	if memberID == 0 {
		return "", domain.ErrInvalidMember
	}

	if strings.TrimSpace(candidate) != "" {
		code, err := s.Normalize(candidate)
		if err != nil {
			return "", err
		}
		err = s.claim(ctx, tx, memberID, code)
		if err == nil {
			return code, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return "", err
		}
		s.log.Debug("candidate code taken, falling back to random generation",
			zap.String("member_id", memberID.String()))
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := generate()
		if err != nil {
			return "", err
		}
		err = s.claim(ctx, tx, memberID, code)
		if err == nil {
			return code, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return "", err
		}
	}

	s.log.Error("referral code allocation exhausted",
		zap.String("member_id", memberID.String()),
		zap.Int("attempts", maxAttempts))
	return "", domain.ErrCodeExhausted
}

func (s *Service) claim(ctx context.Context, tx *gorm.DB, memberID snowflake.ID, code string) error {
	return s.repo.Insert(ctx, tx, &domain.ReferralCode{
		Code:      code,
		MemberID:  memberID,
		CreatedAt: s.clock.Now(),
	})
}

func generate() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, generatedLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
