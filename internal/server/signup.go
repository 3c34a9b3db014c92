package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	signupdomain "github.com/uplinehq/upline/internal/signup/domain"
)

type SignupRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	RecruiterRef  string `json:"recruiter_ref"`
	CodeCandidate string `json:"code_candidate"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.signupSvc.Signup(c.Request.Context(), signupdomain.Request{
		Name:          req.Name,
		Email:         req.Email,
		RecruiterRef:  req.RecruiterRef,
		CodeCandidate: req.CodeCandidate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
