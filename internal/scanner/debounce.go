package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPause is how long scanning stays paused after a detection.
const DefaultPause = 500 * time.Millisecond

// Debouncer decides whether a detection for key should be delivered. A
// detection opens a pause window during which later detections are dropped.
type Debouncer interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryDebouncer keeps pause windows in process memory.
type MemoryDebouncer struct {
	mu    sync.Mutex
	pause time.Duration
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryDebouncer(pause time.Duration) *MemoryDebouncer {
	if pause <= 0 {
		pause = DefaultPause
	}
	return &MemoryDebouncer{pause: pause, until: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDebouncer) Allow(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if until, ok := d.until[key]; ok && now.Before(until) {
		return false, nil
	}
	d.until[key] = now.Add(d.pause)

	// sweep expired windows so the map does not grow with every user
	if len(d.until) > 1024 {
		for k, until := range d.until {
			if now.After(until) {
				delete(d.until, k)
			}
		}
	}
	return true, nil
}

// RedisDebouncer shares pause windows between replicas using SET NX PX.
type RedisDebouncer struct {
	client *redis.Client
	pause  time.Duration
}

const debounceKeyPrefix = "scan:pause:"

func NewRedisDebouncer(client *redis.Client, pause time.Duration) *RedisDebouncer {
	if pause <= 0 {
		pause = DefaultPause
	}
	return &RedisDebouncer{client: client, pause: pause}
}

func (d *RedisDebouncer) Allow(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, debounceKeyPrefix+key, 1, d.pause).Result()
}
