package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Outcome is the three-way result of recruiter resolution. Callers must
// handle every variant; there is no warn-and-continue side channel.
type Outcome string

const (
	// OutcomeResolved means the reference resolved and the snapshot is set.
	OutcomeResolved Outcome = "resolved"
	// OutcomeNoRecruiter means the reference was empty or did not resolve.
	// Signup proceeds with an empty chain.
	OutcomeNoRecruiter Outcome = "no_recruiter"
	// OutcomeInvalidRecruiter means the reference resolved to the signing-up
	// member itself, or to a recruiter whose chain already contains the new
	// member. Signup must reject the reference.
	OutcomeInvalidRecruiter Outcome = "invalid_recruiter"
)

// Resolution is the ancestor snapshot computed at signup. L1 is the direct
// recruiter; L2 and L3 are the recruiter's own first two ancestors. The
// recruiter's third ancestor is dropped, capping depth at three.
type Resolution struct {
	Outcome Outcome
	L1      *snowflake.ID
	L2      *snowflake.ID
	L3      *snowflake.ID
}

type Service interface {
	Resolve(ctx context.Context, db *gorm.DB, newMemberID snowflake.ID, recruiterRef string) (Resolution, error)
}
