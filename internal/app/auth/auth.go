// Package auth собирает HTTP-сервис учетных записей: хранилище, кэш,
// брокер почтовых событий, сервисы и маршруты.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/cache"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/config"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/health"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/jwt"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/kafka"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/metrics"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/password"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/rabbitmq"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/migrations"
	authservices "github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/auth"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/notification"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/users"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервис учетных записей.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *storage.Storage
	closers []io.Closer
}

// New открывает хранилище, применяет миграции, подключает брокер и кэш
// и собирает маршруты. При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	const op = "app.auth.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app := &App{logger: logger, db: db}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	if _, err = migrations.Run(db.DB, cfg.MigrationsPath, logger); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publisher, err := app.openPublisher(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		listingCache users.Cache
		cachePinger  health.Pinger
	)
	if cfg.RedisAddress != "" {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.closers = append(app.closers, cacheRedis)
		listingCache = cacheRedis
		cachePinger = cacheRedis
	} else {
		logger.Warn("redis is not configured, admin listing is served without cache")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	notifier, err := notification.New(logger, publisher, m, cfg.Links)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hasher := password.NewHasher(cfg.BcryptCost, cfg.MaxConcurrent)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	directory := users.NewDirectory(logger, db, listingCache, cfg.UsersCacheTTL)

	opts := []authservices.Option{
		authservices.WithRecorder(m),
		authservices.WithListingInvalidator(directory),
		authservices.WithResetTTL(cfg.ResetTokenTTL),
	}

	reset := authservices.NewPasswordResetService(logger, db, hasher, notifier, opts...)
	app.closers = append(app.closers, reset)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Registration: authservices.NewRegistrationService(logger, db, hasher, notifier, opts...),
		Verification: authservices.NewVerificationService(logger, db, notifier, opts...),
		Reset:        reset,
		Session:      authservices.NewSessionService(logger, db, hasher, jwtMaker, opts...),
		Directory:    directory,
		Tokens:       jwtMaker,
		DB:           db,
		Cache:        cachePinger,
		Metrics:      m.Middleware,
		MetricsHTTP:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// openPublisher подключает брокер, выбранный в конфиге.
func (a *App) openPublisher(ctx context.Context, cfg *config.Config) (notification.Publisher, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		producer := kafka.NewProducer(cfg.Kafka)
		a.closers = append(a.closers, producer)
		return producer, nil
	default:
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn)
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetMailQueues())
		if err != nil {
			return nil, err
		}
		publisher := rabbitmq.NewMailPublisher(ch)
		a.closers = append(a.closers, publisher)
		return publisher, nil
	}
}

// Run обслуживает HTTP до отмены ctx, затем корректно останавливает сервер
// и закрывает ресурсы.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

// close закрывает ресурсы в обратном порядке открытия, база последней.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", sl.Err(err))
		}
		a.db = nil
	}
}
