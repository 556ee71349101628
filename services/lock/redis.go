package locksvc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

const (
	keyPrefix      = "ttess-bloom:lock:"
	defaultLockTTL = time.Minute
	releaseTimeout = 5 * time.Second
)

// deletes the key only if it still holds our token, so an expired lock taken over by someone else survives.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker shares locks between instances through Redis SET NX PX.
// A lock expires after ttl even if it is never released.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger core.Logger
}

var _ core.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.UniversalClient, conf *core.Config, logger core.Logger) *RedisLocker {
	ttl := conf.Redis.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient opens a client on the configured address and pings it.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), error) {
	key = keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquiring lock")
	}
	if !ok {
		return nil, core.ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Error("releasing lock "+key, errors.WithStack(err))
			}
		})
	}, nil
}
