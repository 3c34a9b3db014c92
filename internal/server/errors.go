package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/uplinehq/upline/internal/commission/domain"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
	paymentdomain "github.com/uplinehq/upline/internal/payment/domain"
	codedomain "github.com/uplinehq/upline/internal/referralcode/domain"
	signupdomain "github.com/uplinehq/upline/internal/signup/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if field, code, ok := validationDetail(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   field,
					Code:    code,
					Message: err.Error(),
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, earningdomain.ErrAlreadyFinal),
		errors.Is(err, paymentdomain.ErrNotRefundable),
		errors.Is(err, commissiondomain.ErrPaymentNotComplete):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, codedomain.ErrCodeExhausted):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "code generation exhausted",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationDetail(err error) (field, code string, ok bool) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "request", "invalid_request", true
	case errors.Is(err, signupdomain.ErrInvalidName):
		return "name", "invalid_name", true
	case errors.Is(err, signupdomain.ErrInvalidEmail):
		return "email", "invalid_email", true
	case errors.Is(err, signupdomain.ErrEmailTaken):
		return "email", "email_taken", true
	case errors.Is(err, signupdomain.ErrInvalidRecruiter):
		return "recruiter_ref", "invalid_recruiter", true
	case errors.Is(err, codedomain.ErrInvalidCode):
		return "code", "invalid_code", true
	case errors.Is(err, codedomain.ErrInvalidMember),
		errors.Is(err, earningdomain.ErrInvalidMember),
		errors.Is(err, memberdomain.ErrInvalidID):
		return "member_id", "invalid_member", true
	case errors.Is(err, earningdomain.ErrInvalidStatus):
		return "status", "invalid_status", true
	case errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, commissiondomain.ErrInvalidPayment):
		return "payment", "invalid_payment", true
	default:
		return "", "", false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, memberdomain.ErrNotFound),
		errors.Is(err, earningdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, commissiondomain.ErrPaymentNotFound):
		return true
	default:
		return false
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	_ = status
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
