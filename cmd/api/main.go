// Command api serves the identity HTTP API.
//
// @title        Identity Service API
// @version      1.0
// @description  User registration, login and role management with bearer tokens.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/apiecommerce/identity-service/internal/api"
	"github.com/apiecommerce/identity-service/internal/api/handler"
	"github.com/apiecommerce/identity-service/internal/core/ports"
	"github.com/apiecommerce/identity-service/internal/core/service"
	mongodb "github.com/apiecommerce/identity-service/internal/infrastructure/db/mongo"
	"github.com/apiecommerce/identity-service/internal/infrastructure/db/postgres"
	redisdb "github.com/apiecommerce/identity-service/internal/infrastructure/db/redis"
	"github.com/apiecommerce/identity-service/internal/infrastructure/queue"
	"github.com/apiecommerce/identity-service/internal/infrastructure/security"
	"github.com/apiecommerce/identity-service/internal/pkg/config"
	"github.com/apiecommerce/identity-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// storage bundles the selected backend with its readiness check and cleanup.
type storage struct {
	store   ports.CredentialStore
	roles   ports.RoleRegistry
	pinger  handler.Pinger
	name    string
	cleanup func(ctx context.Context)
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		bootLog := logger.Get()
		bootLog.Fatal().Err(err).Msg("load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "identity-service",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("identity service stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.JWTTTL,
		Issuer: cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.cleanup(context.Background())
	log.Info().Str("driver", st.name).Msg("storage connected")

	health := map[string]handler.Pinger{st.name: st.pinger}

	authOpts := service.AuthOptions{UniformLoginErrors: cfg.Auth.UniformLoginErrors}
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		authOpts.Throttle = redisdb.NewLoginThrottle(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockout)
		health["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info().Str("addr", cfg.Redis.Addr).Msg("login throttle enabled")
	}

	var publisher ports.EventPublisher = queue.NewLogPublisher(log)
	if cfg.Events.AMQPURL != "" {
		rabbit, err := queue.NewRabbitPublisher(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			return err
		}
		defer func() { _ = rabbit.Close() }()
		publisher = rabbit
		log.Info().Str("queue", cfg.Events.Queue).Msg("publishing auth events to rabbitmq")
	}

	// Workers outlive the request context so pending events drain on shutdown.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Events.Workers, publisher, log)
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()
	authOpts.Events = dispatcher

	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	authService := service.NewAuthService(st.store, st.roles, hasher, tokens, log, authOpts)
	userService := service.NewUserService(st.store, st.roles, dispatcher, log)

	e := api.NewRouter(api.RouterDeps{
		Auth:                 authService,
		Users:                userService,
		Tokens:               tokens,
		TokenTTL:             tokens.TTL(),
		OpenRoleRegistration: cfg.Auth.OpenRoleRegistration,
		Health:               health,
		CORSOrigins:          cfg.CORSOrigins,
		Log:                  log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("identity service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		return &storage{
			store:   postgres.NewCredentialStore(db),
			roles:   postgres.NewRoleRegistry(db),
			pinger:  db,
			name:    "postgres",
			cleanup: func(context.Context) { db.Close() },
		}, nil
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "identity-service",
		})
		if err != nil {
			return nil, err
		}
		return &storage{
			store:  mongodb.NewCredentialStore(db),
			roles:  mongodb.NewRoleRegistry(db),
			pinger: handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
			name:   "mongodb",
			cleanup: func(ctx context.Context) {
				_ = client.Disconnect(ctx)
			},
		}, nil
	}
}
