package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// só apaga se o valor ainda for o nosso
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	log    *zap.Logger

	// intervalo entre tentativas enquanto a chave está ocupada
	retryEvery time.Duration
	// tempo máximo esperando a chave
	wait time.Duration
}

func NewRedisLocker(client *redis.Client, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client:     client,
		log:        log,
		retryEvery: 50 * time.Millisecond,
		wait:       5 * time.Second,
	}
}

// NewRedisClient abre o client a partir de uma URL redis://.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	owner := uuid.NewString()

	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, owner, ttl).Result()
		if err != nil {
			l.log.Error("slot lock error", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			l.log.Warn("slot lock not acquired", zap.String("key", key))
			return nil, ErrNotAcquired
		case <-time.After(l.retryEvery):
		}
	}

	release := func() {
		// o release roda mesmo se o request já foi cancelado
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(rctx, l.client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
			l.log.Warn("slot unlock failed", zap.String("key", key), zap.Error(err))
		}
	}
	return release, nil
}
