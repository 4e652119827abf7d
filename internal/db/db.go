package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"forum-auth/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	// Configuración razonable para ambientes iniciales.
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	if err := WaitReady(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return pool, nil
}

// NewMongoClient conecta con MongoDB y espera a que responda.
func NewMongoClient(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, oops.Code("MONGO_CONNECT_FAILED").Wrap(err)
	}
	ping := func(ctx context.Context) error { return client.Ping(ctx, nil) }
	if err := WaitReady(ctx, ping); err != nil {
		_ = client.Disconnect(ctx)
		return nil, oops.Code("MONGO_PING_FAILED").Wrap(err)
	}
	return client, nil
}

var readyBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
}

// WaitReady reintenta ping con backoff exponencial hasta que el backend responda.
func WaitReady(ctx context.Context, ping func(context.Context) error) error {
	return retry.Do(ctx, readyBackoff(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := ping(pingCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
