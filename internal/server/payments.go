package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/uplinehq/upline/internal/payment/domain"
)

type PaymentCompletedRequest struct {
	PaymentID      string          `json:"payment_id"`
	MemberID       string          `json:"member_id"`
	CommissionBase decimal.Decimal `json:"commission_base"`
	Currency       string          `json:"currency"`
}

// PaymentCompleted is the processor webhook. Delivery is at-least-once;
// replays return the already-written earnings.
func (s *Server) PaymentCompleted(c *gin.Context) {
	var req PaymentCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paymentID, err := parseID(req.PaymentID)
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidEvent)
		return
	}
	memberID, err := parseID(req.MemberID)
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidEvent)
		return
	}

	earnings, err := s.paymentSvc.RecordCompleted(c.Request.Context(), paymentdomain.CompletedEvent{
		PaymentID:      paymentID,
		MemberID:       memberID,
		CommissionBase: req.CommissionBase,
		Currency:       req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"earnings": earnings})
}

// RefundPayment cancels the payment's still-pending earnings. Paid
// earnings are not clawed back here.
func (s *Server) RefundPayment(c *gin.Context) {
	paymentID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidEvent)
		return
	}

	cancelled, err := s.paymentSvc.Refund(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"earnings_cancelled": cancelled})
}
