package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/internal/chain/domain"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
	codedomain "github.com/uplinehq/upline/internal/referralcode/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Members memberdomain.Repository
	Codes   codedomain.Service
}

type Service struct {
	log     *zap.Logger
	members memberdomain.Repository
	codes   codedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("chain.service"),
		members: p.Members,
		codes:   p.Codes,
	}
}

// Resolve looks up the recruiter by code, then by legacy email, and builds
// the three-level snapshot. An unresolvable reference degrades to
// OutcomeNoRecruiter; a self-referencing or cyclic one is rejected.
func (s *Service) Resolve(ctx context.Context, db *gorm.DB, newMemberID snowflake.ID, recruiterRef string) (domain.Resolution, error) {
	ref := strings.TrimSpace(recruiterRef)
	if ref == "" {
		return domain.Resolution{Outcome: domain.OutcomeNoRecruiter}, nil
	}

	recruiter, err := s.lookup(ctx, db, ref)
	if err != nil {
		return domain.Resolution{}, err
	}
	if recruiter == nil {
		s.log.Warn("recruiter reference did not resolve",
			zap.String("recruiter_ref", ref),
			zap.String("member_id", newMemberID.String()))
		return domain.Resolution{Outcome: domain.OutcomeNoRecruiter}, nil
	}

	if recruiter.ID == newMemberID {
		return domain.Resolution{Outcome: domain.OutcomeInvalidRecruiter}, nil
	}
	// Stale or reused ids could otherwise introduce a cycle.
	if recruiter.HasAncestor(newMemberID) {
		return domain.Resolution{Outcome: domain.OutcomeInvalidRecruiter}, nil
	}

	recruiterID := recruiter.ID
	return domain.Resolution{
		Outcome: domain.OutcomeResolved,
		L1:      &recruiterID,
		L2:      recruiter.AncestorL1,
		L3:      recruiter.AncestorL2,
	}, nil
}

func (s *Service) lookup(ctx context.Context, db *gorm.DB, ref string) (*memberdomain.Member, error) {
	if code, err := s.codes.Normalize(ref); err == nil {
		recruiter, err := s.members.FindByCode(ctx, db, code)
		if err != nil {
			return nil, err
		}
		if recruiter != nil {
			return recruiter, nil
		}
	}

	if strings.Contains(ref, "@") {
		return s.members.FindByEmail(ctx, db, strings.ToLower(ref))
	}

	return nil, nil
}
