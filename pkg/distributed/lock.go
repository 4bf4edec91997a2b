package distributed

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
)

// 소유자 값이 일치할 때만 삭제
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 프로세스 간 상호 배제용 Redis 키
type Lock struct {
	client *redis.Client
	key    string
	owner  string
}

// Acquire SET NX로 한 번 시도
func Acquire(ctx context.Context, client *redis.Client, key, owner string, ttl time.Duration) (*Lock, error) {
	ok, err := client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{client: client, key: key, owner: owner}, nil
}

// AcquireWait ctx가 끝날 때까지 interval 간격으로 재시도
func AcquireWait(ctx context.Context, client *redis.Client, key, owner string, ttl, interval time.Duration) (*Lock, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		lock, err := Acquire(ctx, client, key, owner, ttl)
		if !errors.Is(err, ErrLockNotAcquired) {
			return lock, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release 자신이 잡은 락만 해제. TTL로 이미 만료됐으면 ErrLockNotHeld
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (l *Lock) Key() string {
	return l.key
}
