package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/payflow/internal/audit"
	"github.com/smallbiznis/payflow/internal/checkout"
	checkoutdomain "github.com/smallbiznis/payflow/internal/checkout/domain"
	"github.com/smallbiznis/payflow/internal/config"
	"github.com/smallbiznis/payflow/internal/credential"
	obslogger "github.com/smallbiznis/payflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/payflow/internal/observability/metrics"
	"github.com/smallbiznis/payflow/internal/order"
	orderdomain "github.com/smallbiznis/payflow/internal/order/domain"
	"github.com/smallbiznis/payflow/internal/provider"
	"github.com/smallbiznis/payflow/internal/refund"
	refunddomain "github.com/smallbiznis/payflow/internal/refund/domain"
	"github.com/smallbiznis/payflow/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	obsmetrics.Module,
	fx.Provide(registerGin),
	audit.Module,
	credential.Module,
	provider.Module,
	session.Module,
	order.Module,
	checkout.Module,
	refund.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine       *gin.Engine
	cfg          config.Config
	settings     *config.SettingsHolder
	db           *gorm.DB
	genID        *snowflake.Node
	sessions     *session.Manager
	checkoutSvc  checkoutdomain.Service
	refundSvc    refunddomain.Service
	orders       orderdomain.Repository
	credResolver *credential.Resolver
	credVal      *credential.Validator
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Settings     *config.SettingsHolder
	DB           *gorm.DB
	GenID        *snowflake.Node
	Sessions     *session.Manager
	CheckoutSvc  checkoutdomain.Service
	RefundSvc    refunddomain.Service
	Orders       orderdomain.Repository
	CredResolver *credential.Resolver
	CredVal      *credential.Validator
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		settings:     p.Settings,
		db:           p.DB,
		genID:        p.GenID,
		sessions:     p.Sessions,
		checkoutSvc:  p.CheckoutSvc,
		refundSvc:    p.RefundSvc,
		orders:       p.Orders,
		credResolver: p.CredResolver,
		credVal:      p.CredVal,
	}

	svc.registerCheckoutRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerCheckoutRoutes covers the shopper-facing redirect endpoints the
// provider sends the browser back to.
func (s *Server) registerCheckoutRoutes() {
	co := s.engine.Group("/checkout")

	co.GET("/return", s.CheckoutReturn)
	co.GET("/cancel", s.CheckoutCancel)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/checkout", s.StartCheckout)

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/:order_id", s.GetOrder)
	api.POST("/orders/:order_id/payment", s.ProcessPayment)
	api.POST("/orders/:order_id/refunds", s.CreateRefund)

	api.POST("/credentials/validate", s.ValidateCredentials)
}
