package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("agent schedule lock not acquired")
)

// Locker serializes booking writes for one agent on one calendar date, so
// capacity and buffer checks see every committed booking of that day.
type Locker interface {
	WithAgentDayLock(ctx context.Context, agentID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error
}

type redisAgentDayLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAgentDayLocker creates a locker that uses one Redis key per agent and date
func NewRedisAgentDayLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisAgentDayLocker{
		client: client,
		ttl:    ttl,
	}
}

// LockKey is the Redis key guarding an agent's bookings on date.
func LockKey(agentID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("lock:agent:%s:%s", agentID.String(), date.Format("2006-01-02"))
}

func (l *redisAgentDayLocker) WithAgentDayLock(ctx context.Context, agentID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := LockKey(agentID, date)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire agent schedule lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// release must run even if ctx was cancelled inside fn
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisAgentDayLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release agent schedule lock: %w", err)
	}
	return nil
}
