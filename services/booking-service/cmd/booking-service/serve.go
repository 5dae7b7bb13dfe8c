package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fracto-health/fracto/libs/auth"
	"github.com/fracto-health/fracto/libs/grpcx"
	"github.com/fracto-health/fracto/libs/httpx"
	"github.com/fracto-health/fracto/libs/kafkax"
	otelx "github.com/fracto-health/fracto/libs/otel"
	"github.com/fracto-health/fracto/libs/runtime"
	"github.com/fracto-health/fracto/services/booking-service/internal/availability"
	"github.com/fracto-health/fracto/services/booking-service/internal/booking"
	"github.com/fracto-health/fracto/services/booking-service/internal/directory"
	"github.com/fracto-health/fracto/services/booking-service/internal/handlers"
	"github.com/fracto-health/fracto/services/booking-service/internal/rating"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC health endpoint and the directory consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := runtime.SignalContext(cmd.Context())
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger

	otelShutdown, err := otelx.Setup(ctx, otelx.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
		Environment:  cfg.Env,
	})
	if err != nil {
		logger.Error("otel setup failed", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.store.Close()
	if cfg.AutoMigrate {
		if err := be.migrator.Up(ctx); err != nil {
			return err
		}
	}

	rdb := openRedis(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	var cache availability.Cache = availability.NopCache{}
	if rdb != nil {
		cache = availability.NewRedisCache(rdb, cfg.AvailabilityCacheTTL(), cfg.ServiceName+":availability")
	}
	avail := availability.NewService(be.store, cache, logger.Named("availability"))
	ledger := booking.NewLedger(be.store, logger.Named("booking"), booking.WithInvalidator(avail))
	aggregator := rating.NewAggregator(be.store, logger.Named("rating"))

	checks := []runtime.ReadyCheck{{Name: "db", Check: be.store.Ping}}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	brokers := cfg.Brokers()
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})

		consumer := directory.NewConsumer(logger.Named("directory"), directory.Config{
			Brokers: brokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   cfg.KafkaDirectoryTopic,
		}, directory.UpsertHandler(be.store))
		go consumer.Run(ctx)
		logger.Info("directory consumer started", zap.String("topic", cfg.KafkaDirectoryTopic))
	}

	mode, _ := auth.ParseMode(cfg.AuthMode)
	var verifierOpts []auth.VerifierOption
	if cfg.AuthJWKSURL != "" {
		verifierOpts = append(verifierOpts, auth.WithJWKS(auth.NewJWKSClient(cfg.AuthJWKSURL, 5*time.Minute)))
	}
	if cfg.AuthIssuer != "" {
		verifierOpts = append(verifierOpts, auth.WithIssuer(cfg.AuthIssuer))
	}
	authn := auth.NewAuthenticator(mode, auth.NewVerifier(cfg.JWTSecret, verifierOpts...))

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux, handlers.Handlers{
		Doctors:  handlers.NewDoctorHandler(be.store, avail, aggregator, logger),
		Bookings: handlers.NewBookingHandler(ledger, logger),
		Ratings:  handlers.NewRatingHandler(aggregator, logger),
	}, authn)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.AllowedOrigins(), MaxAge: 10 * time.Minute}),
		rateLimit(cfg.RateLimitPerMinute, cfg.RateLimitFailOpen, cfg.ServiceName, rdb, logger),
		httpx.WithBodyLimit(cfg.RequestBodyLimitBytes),
		httpx.WithTimeout(cfg.RequestTimeout()),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Both listeners are bound before anything serves, so a port conflict
	// leaves nothing running behind.
	httpLis, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	var grpcLis net.Listener
	if cfg.GRPCPort != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddr())
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("listen grpc: %w", err)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", zap.String("addr", httpLis.Addr().String()))
		if err := srv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if grpcLis != nil {
		grpcSrv := grpcx.NewServer(logger.Named("grpc"), cfg.ServiceName, checks...)
		go func() {
			logger.Info("grpc health server starting", zap.String("addr", grpcLis.Addr().String()))
			if err := grpcSrv.Serve(ctx, grpcLis, cfg.ReadinessPollInterval()); err != nil {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	logger.Info("http server stopped")
	return serveErr
}

// rateLimit shares the budget through redis when it is configured.
func rateLimit(perMinute int, failOpen bool, service string, rdb *redis.Client, logger *zap.Logger) httpx.Middleware {
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, httpx.RedisRateLimiterConfig{
			Limit:    perMinute,
			Window:   time.Minute,
			Prefix:   service + ":rl",
			FailOpen: failOpen,
		}, logger).Middleware()
	}
	return httpx.NewRateLimiter(perMinute, time.Minute).Middleware()
}
