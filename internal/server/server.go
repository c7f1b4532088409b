// Package server exposes the inbound WhatsApp webhook, the payment webhook,
// and the admin read endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/smallbiznis/mina/internal/account/domain"
	"github.com/smallbiznis/mina/internal/clock"
	"github.com/smallbiznis/mina/internal/config"
	"github.com/smallbiznis/mina/internal/dedupe"
	paymentdomain "github.com/smallbiznis/mina/internal/payment/domain"
	"github.com/smallbiznis/mina/internal/providers/media"
	"github.com/smallbiznis/mina/internal/providers/messaging"
	"github.com/smallbiznis/mina/internal/queue"
	reservationdomain "github.com/smallbiznis/mina/internal/reservation/domain"
	workitemdomain "github.com/smallbiznis/mina/internal/workitem/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Estimator predicts a voice note's length in minutes before download.
type Estimator interface {
	EstimateMinutes(ctx context.Context, mediaURL string) float64
}

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ServerParams struct {
	fx.In

	Engine       *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	DB           *gorm.DB
	Clock        clock.Clock
	Reservations reservationdomain.Service
	Payments     paymentdomain.Service
	Accounts     accountdomain.Repository
	WorkItems    workitemdomain.Repository
	Ledger       *dedupe.Ledger
	Enqueuer     queue.Enqueuer
	Estimator    Estimator
	Sender       messaging.Sender
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	db           *gorm.DB
	clock        clock.Clock
	reservations reservationdomain.Service
	payments     paymentdomain.Service
	accounts     accountdomain.Repository
	workItems    workitemdomain.Repository
	ledger       *dedupe.Ledger
	enqueuer     queue.Enqueuer
	estimator    Estimator
	sender       messaging.Sender
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Engine,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		db:           p.DB,
		clock:        p.Clock,
		reservations: p.Reservations,
		payments:     p.Payments,
		accounts:     p.Accounts,
		workItems:    p.WorkItems,
		ledger:       p.Ledger,
		enqueuer:     p.Enqueuer,
		estimator:    p.Estimator,
		sender:       p.Sender,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.POST("/webhook/whatsapp", s.handleInboundMessage)
	s.engine.POST("/webhook/payments", s.handlePaymentWebhook)

	admin := s.engine.Group("/admin")
	admin.GET("/users/:phone", s.handleAdminUser)
	admin.GET("/notes/:phone", s.handleAdminNotes)
}

func provideEstimator(fetcher *media.Fetcher) Estimator {
	return fetcher
}

func run(lc fx.Lifecycle, cfg config.Config, srv *Server, log *zap.Logger) {
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("http.server",
	fx.Provide(
		NewEngine,
		provideEstimator,
		NewServer,
	),
	fx.Invoke(run),
)
