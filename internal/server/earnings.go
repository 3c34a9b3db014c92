package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
	"github.com/uplinehq/upline/pkg/db/pagination"
)

// PayEarning is invoked by the payout batch once an earning is settled.
func (s *Server) PayEarning(c *gin.Context) {
	earningID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	earning, err := s.earningSvc.MarkPaid(c.Request.Context(), earningID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, earning)
}

// MemberStats returns the recomputed rollup for a member as beneficiary.
func (s *Server) MemberStats(c *gin.Context) {
	memberID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, memberdomain.ErrInvalidID)
		return
	}

	stats, err := s.earningSvc.Stats(c.Request.Context(), memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// MemberEarnings lists a member's earnings, optionally filtered by status.
func (s *Server) MemberEarnings(c *gin.Context) {
	memberID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, memberdomain.ErrInvalidID)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := earningdomain.Status(strings.TrimSpace(c.Query("status")))
	resp, err := s.earningSvc.List(c.Request.Context(), earningdomain.ListRequest{
		MemberID:  memberID,
		Status:    status,
		PageToken: page.PageToken,
		PageSize:  page.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
