package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	chaindomain "github.com/uplinehq/upline/internal/chain/domain"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
)

type AllocateCodeRequest struct {
	MemberID  string `json:"member_id"`
	Candidate string `json:"candidate"`
}

type AllocateCodeResponse struct {
	Code string `json:"code"`
}

// AllocateCode reserves a recruitment code outside the signup flow, e.g.
// for members created before codes existed. The member's own recruiting
// code is repointed so the new code resolves as a recruiter reference.
func (s *Server) AllocateCode(c *gin.Context) {
	var req AllocateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	memberID, err := parseID(req.MemberID)
	if err != nil {
		AbortWithError(c, memberdomain.ErrInvalidID)
		return
	}

	code, err := s.signupSvc.AllocateCode(c.Request.Context(), memberID, req.Candidate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AllocateCodeResponse{Code: code})
}

type ResolveChainRequest struct {
	MemberID     string `json:"member_id"`
	RecruiterRef string `json:"recruiter_ref"`
}

type ResolveChainResponse struct {
	Outcome chaindomain.Outcome `json:"outcome"`
	L1      *snowflake.ID       `json:"l1,omitempty"`
	L2      *snowflake.ID       `json:"l2,omitempty"`
	L3      *snowflake.ID       `json:"l3,omitempty"`
}

// ResolveChain dry-runs recruiter resolution so signup forms can validate
// a reference synchronously.
func (s *Server) ResolveChain(c *gin.Context) {
	var req ResolveChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	memberID, err := parseID(req.MemberID)
	if err != nil {
		AbortWithError(c, memberdomain.ErrInvalidID)
		return
	}

	resolution, err := s.chainSvc.Resolve(c.Request.Context(), s.db, memberID, req.RecruiterRef)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResolveChainResponse{
		Outcome: resolution.Outcome,
		L1:      resolution.L1,
		L2:      resolution.L2,
		L3:      resolution.L3,
	})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, memberdomain.ErrInvalidID
	}
	return id, nil
}
