package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"forum-auth/internal/config"
	"forum-auth/internal/db"
	"forum-auth/internal/email"
	apihttp "forum-auth/internal/http"
	"forum-auth/internal/metrics"
	"forum-auth/internal/repository"
	"forum-auth/internal/service"
)

// NewServeCmd crea el subcomando serve.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP authentication API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	users, closeStore, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open user store", zap.Error(err))
		return err
	}
	defer closeStore()

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, user cache disabled", zap.Error(err))
		} else {
			users = repository.NewCachedUserRepository(users, redisClient, cfg.UserCacheTTL, logger)
		}
		cancel()
	}

	emailSender := newEmailSender(cfg, logger)
	router := buildRouter(cfg, logger, users, emailSender, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.AppEnv == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openUserStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := db.NewMongoClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
		}
		repo := repository.NewMongoUserRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	default:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPgUserRepository(pool), pool.Close, nil
	}
}

func newEmailSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.SMTPHost == "" {
		logger.Warn("smtp not configured, password reset emails will fail")
		return email.NewDisabledSender("email sender not configured")
	}
	sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
		return email.NewDisabledSender("email sender not configured")
	}
	return sender
}

func newHasher(cfg *config.Config) service.PasswordHasher {
	if cfg.PasswordHasher == config.HasherArgon2id {
		return service.NewArgon2idHasher()
	}
	return service.NewBcryptHasher(cfg.BcryptCost)
}

// buildRouter arma el grafo de servicios sobre un store ya abierto.
func buildRouter(
	cfg *config.Config,
	logger *zap.Logger,
	users repository.UserRepository,
	sender email.Sender,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
) http.Handler {
	metrics.RegisterMetrics(reg)

	tokens := service.NewTokenCodec(cfg.JWTSecret, cfg.JWTExpiresIn, nil)
	verifier := service.NewCredentialVerifier()
	accounts := service.NewAccountStore(users, newHasher(cfg), nil)
	sessions := service.NewSessionIssuer(logger, accounts, users, tokens, verifier, service.SessionConfig{
		CookieTTL:    cfg.CookieTTL(),
		SecureCookie: cfg.IsProduction(),
	}, nil)
	resets := service.NewResetTokenGenerator(cfg.ResetTokenTTL, nil)
	passwords := service.NewPasswordService(logger, users, accounts, resets, sender, sessions, verifier, nil)
	guard := service.NewAccessGuard(tokens, users)

	authHandler := apihttp.NewAuthHandler(logger, sessions, passwords, cfg.PublicBaseURL)
	return apihttp.NewRouter(logger, authHandler, guard, gatherer)
}
