package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
)

type Service interface {
	Signup(ctx context.Context, req Request) (Result, error)

	// AllocateCode reserves a recruitment code for an existing member and
	// repoints the member's recruiting code to it, in one transaction.
	AllocateCode(ctx context.Context, memberID snowflake.ID, candidate string) (string, error)
}

// Request carries the signup form. RecruiterRef is an optional recruitment
// code or legacy email; CodeCandidate is an optional vanity code for the
// new member's own recruiting.
type Request struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	RecruiterRef  string `json:"recruiter_ref"`
	CodeCandidate string `json:"code_candidate"`
}

type Result struct {
	Member       memberdomain.Member `json:"member"`
	HadRecruiter bool                `json:"had_recruiter"`
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrEmailTaken       = errors.New("email_taken")
	ErrInvalidRecruiter = errors.New("invalid_recruiter")
)
