package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	smarterrors "github.com/oguzatay/smartmeet/pkg/errors"
)

// Locker guards a meeting against concurrent pipeline runs. Acquire
// returns a release function, or ErrConflict when another run holds
// the lock.
type Locker interface {
	Acquire(ctx context.Context, meetingID int64) (release func(), err error)
}

// releaseScript deletes the lock only if this run still owns it, so an
// expired lock reclaimed by another run is never released from here.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with a SET NX key per meeting.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker. The TTL must outlast the slowest
// plausible pipeline run so a live run never loses its lock.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func lockKey(meetingID int64) string {
	return fmt.Sprintf("meeting:lock:%d", meetingID)
}

// Acquire takes the meeting lock.
func (l *RedisLocker) Acquire(ctx context.Context, meetingID int64) (func(), error) {
	key := lockKey(meetingID)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock for meeting %d: %w", meetingID, err)
	}
	if !ok {
		return nil, fmt.Errorf("meeting %d is already being processed: %w",
			meetingID, smarterrors.ErrConflict)
	}

	release := func() {
		// Best effort; an unreleased lock expires with the TTL.
		releaseScript.Run(context.Background(), l.client, []string{key}, token)
	}
	return release, nil
}

var _ Locker = (*RedisLocker)(nil)
