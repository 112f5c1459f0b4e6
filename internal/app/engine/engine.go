// Package engine собирает движок: хранилище, кэш, шлюз, доставку сообщений,
// фоновые циклы и внутренний HTTP API.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/progress-engine/internal/cache"
	"github.com/magabrotheeeer/progress-engine/internal/config"
	"github.com/magabrotheeeer/progress-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/progress-engine/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/migrations"
	"github.com/magabrotheeeer/progress-engine/internal/notifier"
	"github.com/magabrotheeeer/progress-engine/internal/paymentprovider"
	"github.com/magabrotheeeer/progress-engine/internal/services/notification"
	"github.com/magabrotheeeer/progress-engine/internal/services/payment"
	"github.com/magabrotheeeer/progress-engine/internal/services/progression"
	"github.com/magabrotheeeer/progress-engine/internal/services/scheduler"
	"github.com/magabrotheeeer/progress-engine/internal/services/subscription"
	"github.com/magabrotheeeer/progress-engine/internal/storage/repository"
)

const (
	NotifierTelegram = "telegram"
	NotifierAMQP     = "amqp"

	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
	shutdownTimeout = 15 * time.Second
)

// App представляет движок целиком.
type App struct {
	server    *http.Server
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
	db        *repository.Storage
	cache     *cache.Cache
	conn      *amqp.Connection
	ch        *amqp.Channel
}

var openStorage = repository.New

// connectDB повторяет подключение, пока база не поднимется.
func connectDB(ctx context.Context, dsn string, delay time.Duration) (*repository.Storage, error) {
	var err error
	for range dbReadyAttempts {
		var db *repository.Storage
		if db, err = openStorage(dsn); err == nil {
			return db, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("database not ready after retries: %w", err)
}

// New подключает зависимости, применяет миграции и собирает сервисы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}

	db, err := connectDB(ctx, cfg.StorageConnectionString, dbReadyDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	app.db = db

	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if err := repository.CheckDatabaseReady(ctx, db); err != nil {
		app.closeResources()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}
	app.cache = cacheRedis
	locks := cache.NewLocker(cacheRedis, cfg.LockTTL)

	sender, err := app.newSender(cfg)
	if err != nil {
		app.closeResources()
		return nil, err
	}

	notifications := notification.NewService(db, sender, cfg.MaxMessageSize, logger)
	activator := subscription.NewActivator(db, notifications, logger)
	gateway := paymentprovider.NewClient(cfg.GatewayURL, cfg.GatewayToken, cfg.GatewayTimeout, cfg.LinkTTL)
	payments := payment.NewService(db, gateway, activator, locks, cfg, cfg.LinkTTL, logger)
	progress := progression.NewService(db, cacheRedis, locks, cfg.InactivityLimits(), cfg.Progression.CacheTTL, logger)

	jobs := scheduler.NewJobs(payments, notifications, progress, db, cfg.Scheduler, logger)
	app.scheduler = scheduler.New(logger, jobs.Loops()...)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Users:         db,
		Subscriptions: db,
		Payments:      payments,
		Progress:      progress,
		Store:         db,
		Tokens:        jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
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

// newSender выбирает канал доставки сообщений по cfg.Kind.
func (a *App) newSender(cfg *config.Config) (notification.Sender, error) {
	switch cfg.Kind {
	case NotifierAMQP:
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		a.conn = conn
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		a.ch = ch
		return notifier.NewQueue(ch), nil
	case NotifierTelegram, "":
		if cfg.TelegramToken == "" {
			return nil, errors.New("telegram notifier requires TELEGRAM_TOKEN")
		}
		return notifier.NewTelegram(cfg.TelegramURL, cfg.TelegramToken, cfg.SendTimeout), nil
	default:
		return nil, fmt.Errorf("unknown notifier kind %q", cfg.Kind)
	}
}

// Run запускает фоновые циклы и HTTP-сервер и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.closeResources()

	loopsCtx, stopLoops := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduler.Run(loopsCtx)
	}()
	defer func() {
		stopLoops()
		wg.Wait()
	}()

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
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}

func (a *App) closeResources() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
