package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"forum-auth/internal/domain"
)

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedUserRepository cachea en Redis las lecturas por id sin credenciales,
// que son las que hace el guard en cada request protegido.
//
// Las escrituras reemplazan la entrada con Set y las lecturas solo la crean con
// SetNX, así una lectura que empezó antes de un cambio de contraseña no puede
// dejar en caché la versión anterior.
type CachedUserRepository struct {
	UserRepository
	client redisKV
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewCachedUserRepository(inner UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) UserRepository {
	if client == nil || ttl <= 0 {
		return inner
	}
	return newCachedUserRepository(inner, client, ttl, logger)
}

func newCachedUserRepository(inner UserRepository, client redisKV, ttl time.Duration, logger *zap.Logger) *CachedUserRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedUserRepository{
		UserRepository: inner,
		client:         client,
		ttl:            ttl,
		prefix:         "auth:user:",
		logger:         logger,
	}
}

func (r *CachedUserRepository) GetByID(ctx context.Context, id string, opts LookupOptions) (domain.User, error) {
	if opts.IncludePassword {
		return r.UserRepository.GetByID(ctx, id, opts)
	}

	key := r.prefix + id
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user domain.User
		if jsonErr := json.Unmarshal(raw, &user); jsonErr == nil {
			return user, nil
		}
		r.logger.Warn("discarding malformed cached user", zap.String("user_id", id))
		r.invalidate(ctx, id)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("user cache read failed", zap.Error(err), zap.String("user_id", id))
	}

	user, err := r.UserRepository.GetByID(ctx, id, opts)
	if err != nil {
		return domain.User{}, err
	}
	// PasswordHash y los campos de reseteo llevan json:"-", no llegan a Redis.
	payload, err := json.Marshal(user)
	if err == nil {
		if err := r.client.SetNX(ctx, key, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("user cache write failed", zap.Error(err), zap.String("user_id", id))
		}
	}
	return user, nil
}

func (r *CachedUserRepository) Save(ctx context.Context, user domain.User) error {
	if err := r.UserRepository.Save(ctx, user); err != nil {
		return err
	}
	r.refresh(ctx, user)
	return nil
}

func (r *CachedUserRepository) ConsumeReset(ctx context.Context, user domain.User, tokenHash string) error {
	if err := r.UserRepository.ConsumeReset(ctx, user, tokenHash); err != nil {
		return err
	}
	r.refresh(ctx, user)
	return nil
}

// UpdateResetFields no toca la caché: los campos de reseteo no se serializan.

// refresh sobrescribe la entrada con el usuario recién persistido. Si Redis
// rechaza el Set se intenta borrar la clave.
func (r *CachedUserRepository) refresh(ctx context.Context, user domain.User) {
	ctx = context.WithoutCancel(ctx)
	payload, err := json.Marshal(user)
	if err == nil {
		err = r.client.Set(ctx, r.prefix+user.ID, payload, r.ttl).Err()
	}
	if err == nil {
		return
	}
	r.logger.Warn("user cache refresh failed", zap.Error(err), zap.String("user_id", user.ID))
	r.invalidate(ctx, user.ID)
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		r.logger.Error("user cache invalidation failed", zap.Error(err), zap.String("user_id", id))
	}
}
