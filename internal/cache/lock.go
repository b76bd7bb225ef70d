package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"FieldForce/storage/redis"
)

// 分布式锁：SetNX 加锁，value 为随机 token，只有持有者能释放
const (
	lockPrefix = "lock"
)

// 仅当 value 等于 token 时删除，避免误删过期后被他人重新持有的锁
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	client goredis.Cmdable
	prefix string
}

func NewLocker(client goredis.Cmdable, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redis.KeyWithPrefix(l.prefix, lockPrefix, key), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	fullKey := redis.KeyWithPrefix(l.prefix, lockPrefix, key)
	return unlockScript.Run(ctx, l.client, []string{fullKey}, token).Err()
}
