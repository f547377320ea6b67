package launch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard admits at most one active launch per token id.
type Guard interface {
	// Acquire returns ErrLaunchInProgress if id is held. The returned release is idempotent.
	Acquire(ctx context.Context, id string) (release func(), err error)
}

// LocalGuard is an in-process Guard.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalGuard creates an empty LocalGuard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]bool)}
}

// Acquire implements Guard.
func (g *LocalGuard) Acquire(_ context.Context, id string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[id] {
		return nil, ErrLaunchInProgress
	}
	g.held[id] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, id)
			g.mu.Unlock()
		})
	}, nil
}

// DefaultLockTTL bounds how long a crashed process keeps a token locked.
const DefaultLockTTL = 2 * time.Minute

// Lock scripts compare the stored owner token so one process never frees another's lock.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisGuard shares token locks between launcher processes through Redis.
// A held lock is refreshed every TTL/3 until released.
type RedisGuard struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisGuardOptions configures RedisGuard.
type RedisGuardOptions struct {
	Prefix string        // key prefix, default "launcher:lock:"
	TTL    time.Duration // lock expiry, default DefaultLockTTL
	Logger *slog.Logger
}

// NewRedisGuard creates a RedisGuard over client.
func NewRedisGuard(client redis.UniversalClient, opts RedisGuardOptions) *RedisGuard {
	g := &RedisGuard{client: client, prefix: opts.Prefix, ttl: opts.TTL, logger: opts.Logger}
	if g.prefix == "" {
		g.prefix = "launcher:lock:"
	}
	if g.ttl <= 0 {
		g.ttl = DefaultLockTTL
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With("component", "guard")
	return g
}

// Acquire implements Guard.
func (g *RedisGuard) Acquire(ctx context.Context, id string) (func(), error) {
	key := g.prefix + id
	owner := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, owner, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", id, err)
	}
	if !ok {
		return nil, ErrLaunchInProgress
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go g.refresh(key, owner, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, g.client, []string{key}, owner).Err(); err != nil {
				g.logger.Warn("release lock failed", "id", id, "error", err)
			}
		})
	}, nil
}

func (g *RedisGuard) refresh(key, owner string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(g.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), g.ttl/3)
			n, err := refreshScript.Run(ctx, g.client, []string{key}, owner, g.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				g.logger.Warn("refresh lock failed", "key", key, "error", err)
				continue
			}
			if n == 0 {
				g.logger.Warn("lock lost", "key", key)
				return
			}
		}
	}
}
