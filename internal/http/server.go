package http

import (
	"context"
	"net/http"
	"time"

	"github.com/alizand/leadwire/internal/config"
	"github.com/alizand/leadwire/internal/dispatch"
	"github.com/alizand/leadwire/internal/http/middleware"
	"github.com/alizand/leadwire/internal/identity"
	"github.com/alizand/leadwire/internal/inbound"
	"github.com/alizand/leadwire/internal/logger"
	"github.com/alizand/leadwire/internal/metrics"
	"github.com/alizand/leadwire/internal/render"
	"github.com/alizand/leadwire/internal/reply"
	"github.com/alizand/leadwire/internal/repository"
	"github.com/alizand/leadwire/internal/transport"
	"github.com/jmoiron/sqlx"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	tenantsRepo := repository.NewTenantsRepository(mysqlDB)
	messagesRepo := repository.NewMessagesRepository(mysqlDB)
	contactsRepo := repository.NewContactsRepository(mysqlDB)
	walletRepo := repository.NewWalletRepository(mysqlDB)
	identitiesRepo := repository.NewIdentitiesRepository(mysqlDB)
	trackersRepo := repository.NewDripTrackersRepository(mysqlDB)

	// repos (ClickHouse)
	chMessagesRepo := repository.NewCHMessagesRepository(clickhouseDB)

	// transport + core services
	tc := transport.NewHTTPClient(
		cfg.Transport.BaseURL,
		cfg.Transport.SendPath,
		cfg.Transport.StatusPath,
		cfg.Transport.TimeoutMs,
		cfg.Transport.Breaker.FailThreshold,
		cfg.Transport.Breaker.OpenForMs,
	)
	pipeline := dispatch.New(
		messagesRepo,
		walletRepo,
		contactsRepo,
		identitiesRepo,
		tc,
		render.Options{OptOutSuffix: cfg.Content.OptOutSuffix, MaxLen: cfg.Content.MaxLen},
		cfg.Pricing.PerMessage,
		cfg.Transport.PollDelay,
		logger.Log.Named("dispatch"),
	)
	claims := identity.New(identitiesRepo, logger.Log.Named("identity"))
	responder := reply.NewResponder(reply.NewGenerator(reply.OfferConfig{
		Timezone:    cfg.Reply.Timezone,
		OpenHour:    cfg.Reply.OfficeOpen,
		CloseHour:   cfg.Reply.OfficeClose,
		SlotHours:   cfg.Reply.SlotHours,
		BookingLink: cfg.Reply.BookingLink,
	}))
	inboundHandler := inbound.NewHandler(
		contactsRepo,
		trackersRepo,
		messagesRepo,
		responder,
		pipeline,
		logger.Log.Named("inbound"),
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(tenantsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:tenant:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// tenant API
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/messages/send", sendHandler(pipeline))
	v1.GET("/messages/:id", getMessageHandler(messagesRepo))
	v1.POST("/wallet/topup", topupHandler(walletRepo))
	v1.POST("/identities/claim", claimIdentityHandler(claims))
	v1.POST("/identities/release", releaseIdentityHandler(claims))
	v1.POST("/drips/enroll", enrollDripHandler(contactsRepo, trackersRepo))
	v1.GET("/reports/messages", listMessagesHandler(chMessagesRepo))

	// provider boundary (token auth, no tenant key)
	e.POST("/v1/webhooks/inbound", inboundWebhookHandler(inboundHandler, cfg.Webhook.Token))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
