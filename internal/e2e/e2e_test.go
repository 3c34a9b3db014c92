package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	chainservice "github.com/uplinehq/upline/internal/chain/service"
	commissionservice "github.com/uplinehq/upline/internal/commission/service"
	"github.com/uplinehq/upline/internal/config"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	earningrepo "github.com/uplinehq/upline/internal/earning/repository"
	earningservice "github.com/uplinehq/upline/internal/earning/service"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
	memberrepo "github.com/uplinehq/upline/internal/member/repository"
	"github.com/uplinehq/upline/internal/observability"
	paymentdomain "github.com/uplinehq/upline/internal/payment/domain"
	paymentrepo "github.com/uplinehq/upline/internal/payment/repository"
	paymentservice "github.com/uplinehq/upline/internal/payment/service"
	codedomain "github.com/uplinehq/upline/internal/referralcode/domain"
	coderepo "github.com/uplinehq/upline/internal/referralcode/repository"
	codeservice "github.com/uplinehq/upline/internal/referralcode/service"
	"github.com/uplinehq/upline/internal/server"
	"github.com/uplinehq/upline/internal/signup"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&memberdomain.Member{},
		&codedomain.ReferralCode{},
		&paymentdomain.Payment{},
		&earningdomain.Earning{},
	))
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_earnings_payment_level ON earnings(payment_id, level)",
	).Error)

	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	members := memberrepo.Provide()
	earnings := earningrepo.Provide()
	payments := paymentrepo.Provide()

	codeSvc := codeservice.New(codeservice.Params{Log: log, Repo: coderepo.Provide()})
	chainSvc := chainservice.New(chainservice.Params{Log: log, Members: members, Codes: codeSvc})
	signupSvc := signup.NewService(signup.Params{
		DB: db, Log: log, GenID: node,
		Members: members, Codes: codeSvc, Chain: chainSvc,
	})
	commissionSvc := commissionservice.New(commissionservice.Params{
		DB: db, Log: log, GenID: node,
		Members: members, Payments: payments, Earnings: earnings,
	})
	paymentSvc := paymentservice.New(paymentservice.Params{
		DB: db, Log: log, Repo: payments,
		Commission: commissionSvc, Earnings: earnings,
	})
	earningSvc := earningservice.New(earningservice.Params{DB: db, Log: log, Repo: earnings})

	engine := server.NewEngine(observability.Config{Environment: "test"}, nil)
	srv := server.NewServer(server.ServerParams{
		Gin:        engine,
		Log:        log,
		Cfg:        config.Config{},
		DB:         db,
		GenID:      node,
		SignupSvc:  signupSvc,
		ChainSvc:   chainSvc,
		PaymentSvc: paymentSvc,
		EarningSvc: earningSvc,
	})
	srv.RegisterAPIRoutes()
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

type memberJSON struct {
	ID           string  `json:"id"`
	ReferralCode string  `json:"referral_code"`
	AncestorL1   *string `json:"ancestor_l1"`
	AncestorL2   *string `json:"ancestor_l2"`
	AncestorL3   *string `json:"ancestor_l3"`
}

type signupJSON struct {
	Member       memberJSON `json:"member"`
	HadRecruiter bool       `json:"had_recruiter"`
}

type earningJSON struct {
	ID       string          `json:"id"`
	Level    int             `json:"level"`
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
}

func signUp(t *testing.T, engine *gin.Engine, name, email, recruiterRef string) signupJSON {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/signup", map[string]string{
		"name":          name,
		"email":         email,
		"recruiter_ref": recruiterRef,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp signupJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// Walks the whole lifecycle over HTTP: three signups chained by recruitment
// code, a completed payment, payout of one earning, then a refund.
func TestReferralLifecycle(t *testing.T) {
	engine := newTestServer(t)

	a := signUp(t, engine, "Alice", "alice@example.com", "")
	assert.False(t, a.HadRecruiter)
	require.NotEmpty(t, a.Member.ReferralCode)

	b := signUp(t, engine, "Bob", "bob@example.com", a.Member.ReferralCode)
	assert.True(t, b.HadRecruiter)
	require.NotNil(t, b.Member.AncestorL1)
	assert.Equal(t, a.Member.ID, *b.Member.AncestorL1)

	c := signUp(t, engine, "Carol", "carol@example.com", b.Member.ReferralCode)
	require.NotNil(t, c.Member.AncestorL2)
	assert.Equal(t, a.Member.ID, *c.Member.AncestorL2)

	paymentID := "900001"
	rec := doJSON(t, engine, http.MethodPost, "/api/payments/completed", map[string]any{
		"payment_id":      paymentID,
		"member_id":       c.Member.ID,
		"commission_base": 500000,
		"currency":        "USD",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var completed struct {
		Earnings []earningJSON `json:"earnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &completed))
	require.Len(t, completed.Earnings, 2)
	assert.Equal(t, b.Member.ID, completed.Earnings[0].MemberID)
	assert.True(t, completed.Earnings[0].Amount.Equal(decimal.RequireFromString("50000")))
	assert.Equal(t, a.Member.ID, completed.Earnings[1].MemberID)
	assert.True(t, completed.Earnings[1].Amount.Equal(decimal.RequireFromString("25000")))

	// Redelivered webhook returns the same two rows.
	rec = doJSON(t, engine, http.MethodPost, "/api/payments/completed", map[string]any{
		"payment_id":      paymentID,
		"member_id":       c.Member.ID,
		"commission_base": 500000,
		"currency":        "USD",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var replay struct {
		Earnings []earningJSON `json:"earnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replay))
	require.Len(t, replay.Earnings, 2)
	assert.Equal(t, completed.Earnings[0].ID, replay.Earnings[0].ID)

	// B's rollup sees one pending level-1 earning.
	rec = doJSON(t, engine, http.MethodGet, "/api/members/"+b.Member.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Level1Count     int             `json:"level1_count"`
		PendingEarnings decimal.Decimal `json:"pending_earnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Level1Count)
	assert.True(t, stats.PendingEarnings.Equal(decimal.RequireFromString("50000")))

	// Pay out B's earning, then refund the payment: only A's still-pending
	// earning is cancelled.
	rec = doJSON(t, engine, http.MethodPost, "/api/earnings/"+completed.Earnings[0].ID+"/pay", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, engine, http.MethodPost, "/api/payments/"+paymentID+"/refund", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refund struct {
		Cancelled int64 `json:"earnings_cancelled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refund))
	assert.EqualValues(t, 1, refund.Cancelled)

	rec = doJSON(t, engine, http.MethodGet, "/api/members/"+a.Member.ID+"/earnings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Earnings []earningJSON `json:"earnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Earnings, 1)
	assert.Equal(t, string(earningdomain.StatusCancelled), list.Earnings[0].Status)
}

func TestSignupRejectsSelfReferencingChain(t *testing.T) {
	engine := newTestServer(t)

	a := signUp(t, engine, "Alice", "alice@example.com", "")

	rec := doJSON(t, engine, http.MethodPost, "/api/chain/resolve", map[string]string{
		"member_id":     a.Member.ID,
		"recruiter_ref": a.Member.ReferralCode,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resolved struct {
		Outcome string `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.Equal(t, "invalid_recruiter", resolved.Outcome)
}

func TestRefundUnknownPayment(t *testing.T) {
	engine := newTestServer(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/payments/424242/refund", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestVanityCodeConflictOverHTTP(t *testing.T) {
	engine := newTestServer(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/signup", map[string]string{
		"name":           "First",
		"email":          "first@example.com",
		"code_candidate": "vip99",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var first signupJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Equal(t, "VIP99", first.Member.ReferralCode)

	rec = doJSON(t, engine, http.MethodPost, "/api/signup", map[string]string{
		"name":           "Second",
		"email":          "second@example.com",
		"code_candidate": "vip99",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var second signupJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.Member.ReferralCode, second.Member.ReferralCode)
}

func TestStandaloneCodeResolvesAsRecruiter(t *testing.T) {
	engine := newTestServer(t)

	a := signUp(t, engine, "Alice", "alice@example.com", "")

	rec := doJSON(t, engine, http.MethodPost, "/api/codes", map[string]string{
		"member_id": a.Member.ID,
		"candidate": "vanity99",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var allocated struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &allocated))
	require.Equal(t, "VANITY99", allocated.Code)

	// Recruiter resolution picks up the standalone code.
	b := signUp(t, engine, "Bob", "bob@example.com", "VANITY99")
	assert.True(t, b.HadRecruiter)
	require.NotNil(t, b.Member.AncestorL1)
	assert.Equal(t, a.Member.ID, *b.Member.AncestorL1)
}

func TestAllocateCodeUnknownMember(t *testing.T) {
	engine := newTestServer(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/codes", map[string]string{
		"member_id": "424242",
		"candidate": "vanity99",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestDuplicateEmailRejected(t *testing.T) {
	engine := newTestServer(t)

	signUp(t, engine, "First", "dup@example.com", "")

	rec := doJSON(t, engine, http.MethodPost, "/api/signup", map[string]string{
		"name":  "Second",
		"email": "dup@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "email_taken")
}

func TestHealth(t *testing.T) {
	engine := newTestServer(t)

	rec := doJSON(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
