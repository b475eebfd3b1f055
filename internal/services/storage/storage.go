package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/config"
)

// Storage holds per-user violation counts. Counts only ever grow; there is
// no decrement operation.
type Storage interface {
	IncrementViolations(ctx context.Context, userID int64) (int, error)
	ViolationCount(ctx context.Context, userID int64) (int, error)
}

// Manager selects and wraps a storage backend. The memory backend resets
// counts on restart; the redis backend keeps them across restarts. Which of
// the two behaviors is wanted is a deployment decision, so it is driven by
// configuration.
type Manager struct {
	storage Storage
	logger  *logrus.Logger
}

// NewManager creates a new storage manager
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	var s Storage

	switch cfg.Storage.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		s = redisStorage
	case "memory":
		s = NewMemoryStorage(logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	return &Manager{storage: s, logger: logger}, nil
}

func (m *Manager) IncrementViolations(ctx context.Context, userID int64) (int, error) {
	return m.storage.IncrementViolations(ctx, userID)
}

func (m *Manager) ViolationCount(ctx context.Context, userID int64) (int, error) {
	return m.storage.ViolationCount(ctx, userID)
}

// RedisStorage implements storage using Redis
type RedisStorage struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStorage(cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{client: client, logger: logger}, nil
}

func violationKey(userID int64) string {
	return fmt.Sprintf("violations:%d", userID)
}

func (r *RedisStorage) IncrementViolations(ctx context.Context, userID int64) (int, error) {
	count, err := r.client.Incr(ctx, violationKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *RedisStorage) ViolationCount(ctx context.Context, userID int64) (int, error) {
	count, err := r.client.Get(ctx, violationKey(userID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MemoryStorage implements storage using an in-memory cache. Counts are
// process-local and reset when the bot restarts.
type MemoryStorage struct {
	counts *cache.Cache
	mu     sync.Mutex
	logger *logrus.Logger
}

func NewMemoryStorage(logger *logrus.Logger) *MemoryStorage {
	return &MemoryStorage{
		counts: cache.New(cache.NoExpiration, cache.NoExpiration),
		logger: logger,
	}
}

func (m *MemoryStorage) IncrementViolations(ctx context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := violationKey(userID)
	if _, found := m.counts.Get(key); !found {
		m.counts.Set(key, 0, cache.NoExpiration)
	}

	count, err := m.counts.IncrementInt(key, 1)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (m *MemoryStorage) ViolationCount(ctx context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if val, found := m.counts.Get(violationKey(userID)); found {
		return val.(int), nil
	}
	return 0, nil
}
