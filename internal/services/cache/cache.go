package cache

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/models"
)

// PredictionCache memoizes classifier results keyed by exact message text.
// It is bounded by capacity and evicts in insertion order: the oldest
// inserted entry goes first. Entries never expire by age.
//
// The cache is safe for concurrent use; all mutation happens under one mutex.
type PredictionCache struct {
	mu       sync.Mutex
	entries  map[string]models.Prediction
	order    []string
	capacity int
	logger   *logrus.Logger
}

// NewPredictionCache creates a prediction cache with the given capacity.
// A capacity of zero or less is a configuration error.
func NewPredictionCache(capacity int, logger *logrus.Logger) (*PredictionCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("prediction cache capacity must be positive, got %d", capacity)
	}

	return &PredictionCache{
		entries:  make(map[string]models.Prediction, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
		logger:   logger,
	}, nil
}

// GetOrCompute returns the cached prediction for text, or invokes compute,
// stores the result and returns it. The second return value reports whether
// the result came from the cache. compute runs outside the cache lock;
// a compute error is returned as-is and nothing is stored.
func (c *PredictionCache) GetOrCompute(text string, compute func() (models.Prediction, error)) (models.Prediction, bool, error) {
	c.mu.Lock()
	if p, ok := c.entries[text]; ok {
		c.mu.Unlock()
		return p, true, nil
	}
	c.mu.Unlock()

	p, err := compute()
	if err != nil {
		return models.Prediction{}, false, err
	}

	c.mu.Lock()
	c.insert(text, p)
	c.mu.Unlock()

	return p, false, nil
}

// insert stores p under text, evicting the oldest entry when at capacity.
// Caller must hold c.mu.
func (c *PredictionCache) insert(text string, p models.Prediction) {
	if _, ok := c.entries[text]; ok {
		// Another caller computed the same text meanwhile. Keep the
		// original insertion position.
		c.entries[text] = p
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)

		if c.logger != nil {
			c.logger.WithField("key_length", len(oldest)).Debug("Evicted oldest cached prediction")
		}
	}

	c.entries[text] = p
	c.order = append(c.order, text)
}

// Stats reports current cache usage.
func (c *PredictionCache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return models.CacheStats{
		Size:     len(c.entries),
		Capacity: c.capacity,
		Usage:    float64(len(c.entries)) / float64(c.capacity),
	}
}
