package signup

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	chaindomain "github.com/uplinehq/upline/internal/chain/domain"
	"github.com/uplinehq/upline/internal/clock"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
	codedomain "github.com/uplinehq/upline/internal/referralcode/domain"
	"github.com/uplinehq/upline/internal/signup/domain"
	pkgdb "github.com/uplinehq/upline/pkg/db"
	"github.com/uplinehq/upline/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Members memberdomain.Repository
	Codes   codedomain.Service
	Chain   chaindomain.Service
	Clock   clock.Clock        `optional:"true"`
	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	members memberdomain.Repository
	codes   codedomain.Service
	chain   chaindomain.Service
	clock   clock.Clock
	metrics *telemetry.Metrics
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("signup.service"),
		genID:   p.GenID,
		members: p.Members,
		codes:   p.Codes,
		chain:   p.Chain,
		clock:   clk,
		metrics: p.Metrics,
	}
}

// Signup creates the member with its code and ancestor snapshot in one
// transaction. A recruiter reference that does not resolve degrades to an
// empty chain; one that resolves to the member itself is rejected.
func (s *Service) Signup(ctx context.Context, req domain.Request) (domain.Result, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Result{}, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Result{}, domain.ErrInvalidEmail
	}

	memberID := s.genID.Generate()

	resolution, err := s.chain.Resolve(ctx, s.db, memberID, req.RecruiterRef)
	if err != nil {
		return domain.Result{}, err
	}
	if resolution.Outcome == chaindomain.OutcomeInvalidRecruiter {
		return domain.Result{}, domain.ErrInvalidRecruiter
	}

	now := s.clock.Now()
	member := memberdomain.Member{
		ID:         memberID,
		Name:       name,
		Email:      email,
		AncestorL1: resolution.L1,
		AncestorL2: resolution.L2,
		AncestorL3: resolution.L3,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.codes.Allocate(ctx, tx, memberID, req.CodeCandidate)
		if err != nil {
			return err
		}
		member.ReferralCode = code
		if err := s.members.Insert(ctx, tx, &member); err != nil {
			// The code was reserved in this transaction, so the only unique
			// constraint left to trip on the member row is the email.
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}

	recruited := resolution.Outcome == chaindomain.OutcomeResolved
	s.metrics.ObserveSignup(recruited)
	s.log.Info("member created",
		zap.String("member_id", member.ID.String()),
		zap.String("referral_code", member.ReferralCode),
		zap.Bool("had_recruiter", recruited))

	return domain.Result{
		Member:       member,
		HadRecruiter: recruited,
	}, nil
}

// AllocateCode reserves a code for a member that already exists, e.g. one
// created before recruitment codes did. The member row is repointed in the
// same transaction so the new code resolves as a recruiter reference.
func (s *Service) AllocateCode(ctx context.Context, memberID snowflake.ID, candidate string) (string, error) {
	if memberID == 0 {
		return "", memberdomain.ErrInvalidID
	}

	member, err := s.members.FindByID(ctx, s.db, memberID)
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", memberdomain.ErrNotFound
	}

	var code string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocated, err := s.codes.Allocate(ctx, tx, memberID, candidate)
		if err != nil {
			return err
		}
		code = allocated
		return s.members.UpdateReferralCode(ctx, tx, memberID, code, s.clock.Now())
	})
	if err != nil {
		return "", err
	}

	s.log.Info("code allocated",
		zap.String("member_id", memberID.String()),
		zap.String("referral_code", code))
	return code, nil
}
