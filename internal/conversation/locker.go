package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// Locker serializes turns for the same (lead, channel).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Key is the lock and index key for a (lead, channel) pair.
func Key(leadID string, channel Channel) string {
	return leadID + ":" + string(channel)
}

// KeyedMutex is an in-process Locker. Entries are dropped once no goroutine holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[string]*keyedLock)
	}
	l, ok := m.locks[key]
	if !ok {
		l = &keyedLock{sem: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(key, l)
		return nil, fmt.Errorf("conversation: lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.release(key, l)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, l *keyedLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Len reports how many keys are currently tracked.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// ErrLockNotHeld is returned when a redis lock expired before release.
var ErrLockNotHeld = errors.New("conversation: lock not held")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared across processes: SET NX PX with a token, released by compare-and-delete.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
	logger *logging.Logger
}

// NewRedisLocker builds a locker. ttl bounds how long a crashed holder blocks the key and must
// outlast the longest turn.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *logging.Logger) *RedisLocker {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLocker{client: client, prefix: "outreach:lock:", ttl: ttl, poll: 25 * time.Millisecond, logger: logger}
}

// TTL reports how long an acquired lock lives without release.
func (l *RedisLocker) TTL() time.Duration { return l.ttl }

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("conversation: redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("conversation: lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even if the turn's context is already done.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := l.release(releaseCtx, redisKey, token)
			switch {
			case errors.Is(err, ErrLockNotHeld):
				// Another turn may have run concurrently for this key.
				l.logger.Error("conversation lock expired before release", "key", key, "ttl", l.ttl)
			case err != nil:
				l.logger.Warn("conversation lock release failed", "key", key, "error", err)
			}
		})
	}, nil
}

func (l *RedisLocker) release(ctx context.Context, redisKey, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	if err != nil {
		return fmt.Errorf("conversation: redis unlock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
