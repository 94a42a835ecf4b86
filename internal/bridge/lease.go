package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease 同步互斥租约。同一key同一时刻只允许一个持有者
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLease 基于redis SetNX的跨实例租约
type RedisLease struct {
	client *redis.Client
}

// NewRedisLease 创建redis租约
func NewRedisLease(client *redis.Client) *RedisLease {
	return &RedisLease{client: client}
}

// Acquire 尝试获取租约，已被持有时返回false
func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}

// Release 释放租约
func (l *RedisLease) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// MemoryLease 进程内租约，redis未配置时的回退实现。不提供跨实例保护
type MemoryLease struct {
	mu     sync.Mutex
	leases map[string]time.Time // key -> 过期时间
}

// NewMemoryLease 创建进程内租约
func NewMemoryLease() *MemoryLease {
	return &MemoryLease{leases: make(map[string]time.Time)}
}

// Acquire 尝试获取租约
func (l *MemoryLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiry, held := l.leases[key]; held && now.Before(expiry) {
		return false, nil
	}
	l.leases[key] = now.Add(ttl)
	return true, nil
}

// Release 释放租约
func (l *MemoryLease) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, key)
	return nil
}
