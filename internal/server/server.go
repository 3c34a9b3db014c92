package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uplinehq/upline/internal/chain"
	"github.com/uplinehq/upline/internal/commission"
	"github.com/uplinehq/upline/internal/config"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	"github.com/uplinehq/upline/internal/member"
	"github.com/uplinehq/upline/internal/observability"
	obsmiddleware "github.com/uplinehq/upline/internal/observability/logger"
	paymentdomain "github.com/uplinehq/upline/internal/payment/domain"
	"github.com/uplinehq/upline/internal/referralcode"
	"github.com/uplinehq/upline/internal/signup"
	signupdomain "github.com/uplinehq/upline/internal/signup/domain"

	chaindomain "github.com/uplinehq/upline/internal/chain/domain"
	"github.com/uplinehq/upline/internal/earning"
	"github.com/uplinehq/upline/internal/payment"
	"github.com/uplinehq/upline/internal/ratelimit"
	"github.com/uplinehq/upline/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	member.Module,
	referralcode.Module,
	chain.Module,
	signup.Module,
	commission.Module,
	payment.Module,
	earning.Module,
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, metrics *telemetry.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(metricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func metricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

func registerGin(obsCfg observability.Config, metrics *telemetry.Metrics) *gin.Engine {
	return NewEngine(obsCfg, metrics)
}

func run(lc fx.Lifecycle, sd fx.Shutdowner, log *zap.Logger, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server terminated", zap.Error(err))
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	cfg        config.Config
	db         *gorm.DB
	genID      *snowflake.Node
	limiter    *ratelimit.TokenBucket
	signupSvc  signupdomain.Service
	chainSvc   chaindomain.Service
	paymentSvc paymentdomain.Service
	earningSvc earningdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Log        *zap.Logger
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	Limiter    *ratelimit.TokenBucket `optional:"true"`
	SignupSvc  signupdomain.Service
	ChainSvc   chaindomain.Service
	PaymentSvc paymentdomain.Service
	EarningSvc earningdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		log:        p.Log.Named("http.server"),
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		limiter:    p.Limiter,
		signupSvc:  p.SignupSvc,
		chainSvc:   p.ChainSvc,
		paymentSvc: p.PaymentSvc,
		earningSvc: p.EarningSvc,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

// RegisterAPIRoutes wires the referral and commission endpoints.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	signupLimit := ratelimit.Middleware(s.limiter, s.cfg.SignupRateLimit, s.cfg.SignupBurst, s.log)
	api.POST("/signup", signupLimit, s.Signup)
	api.POST("/codes", s.AllocateCode)
	api.POST("/chain/resolve", s.ResolveChain)

	api.POST("/payments/completed", s.PaymentCompleted)
	api.POST("/payments/:id/refund", s.RefundPayment)

	api.POST("/earnings/:id/pay", s.PayEarning)

	api.GET("/members/:id/stats", s.MemberStats)
	api.GET("/members/:id/earnings", s.MemberEarnings)
}
