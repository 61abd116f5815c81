// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cashbackdomain "github.com/smallbiznis/cueledger/internal/cashback/domain"
	"github.com/smallbiznis/cueledger/internal/config"
	customerdomain "github.com/smallbiznis/cueledger/internal/customer/domain"
	"github.com/smallbiznis/cueledger/internal/observability"
	obslogger "github.com/smallbiznis/cueledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/cueledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/cueledger/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/cueledger/internal/order/domain"
	paymentdomain "github.com/smallbiznis/cueledger/internal/payment/domain"
	"github.com/smallbiznis/cueledger/internal/ratelimit"
	"github.com/smallbiznis/cueledger/internal/receipt"
	reportdomain "github.com/smallbiznis/cueledger/internal/report/domain"
	sessiondomain "github.com/smallbiznis/cueledger/internal/session/domain"
	tabledomain "github.com/smallbiznis/cueledger/internal/table/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log.Named("http"), obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	tableSvc    tabledomain.Service
	customerSvc customerdomain.Service
	sessionSvc  sessiondomain.Service
	orderSvc    orderdomain.Service
	cashbackSvc cashbackdomain.Service
	paymentSvc  paymentdomain.Service
	reportSvc   reportdomain.Service
	receiptSvc  *receipt.Service
	limiter     *ratelimit.Limiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	TableSvc    tabledomain.Service
	CustomerSvc customerdomain.Service
	SessionSvc  sessiondomain.Service
	OrderSvc    orderdomain.Service
	CashbackSvc cashbackdomain.Service
	PaymentSvc  paymentdomain.Service
	ReportSvc   reportdomain.Service
	ReceiptSvc  *receipt.Service
	Limiter     *ratelimit.Limiter  `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("http"),
		tableSvc:    p.TableSvc,
		customerSvc: p.CustomerSvc,
		sessionSvc:  p.SessionSvc,
		orderSvc:    p.OrderSvc,
		cashbackSvc: p.CashbackSvc,
		paymentSvc:  p.PaymentSvc,
		reportSvc:   p.ReportSvc,
		receiptSvc:  p.ReceiptSvc,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}

	svc.engine.GET("/health", svc.Health)
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ActorRequired(), s.RateLimit())

	// -------- Tables --------
	api.POST("/tables", s.CreateTable)
	api.GET("/tables", s.ListTables)
	api.GET("/tables/:id", s.GetTable)
	api.PATCH("/tables/:id/active", s.SetTableActive)
	api.PUT("/tables/:id/rate", s.UpdateTableRate)
	api.GET("/tables/:id/rate-history", s.ListTableRateHistory)
	api.DELETE("/tables/:id", s.DeleteTable)

	// -------- Customers --------
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomer)
	api.POST("/customers/:id/debt-payments", s.PayCustomerDebt)
	api.GET("/customers/:id/cashback", s.GetCustomerCashback)
	api.POST("/customers/:id/cashback/legacy", s.AssignLegacyCashback)

	// -------- Sessions --------
	api.POST("/sessions", s.OpenSession)
	api.GET("/sessions/active", s.ListActiveSessions)
	api.GET("/sessions/history", s.ListSessionHistory)
	api.GET("/sessions/:id", s.GetSession)
	api.POST("/sessions/:id/close", s.CloseSession)
	api.GET("/sessions/:id/receipt", s.GetSessionReceipt)
	api.GET("/sessions/:id/orders", s.ListSessionOrders)
	api.POST("/sessions/:id/orders", s.AddSessionOrder)
	api.GET("/sessions/:id/payments", s.ListSessionPayments)
	api.DELETE("/orders/:id", s.RemoveOrder)

	// -------- Cashback --------
	api.GET("/cashback/balance", s.GetCashbackBalance)
	api.GET("/cashback/history", s.ListCashbackHistory)
	api.GET("/cashback/settings", s.GetCashbackSettings)
	api.PUT("/cashback/settings", s.UpdateCashbackSettings)
	api.POST("/cashback/expire", s.ExpireCashback)

	// -------- Reports --------
	api.GET("/reports/daily", s.GetDailyReport)
}
