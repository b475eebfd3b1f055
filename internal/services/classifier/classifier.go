package classifier

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/middleware"
	"github.com/toxguard/tgbot/internal/models"
	"github.com/toxguard/tgbot/internal/services/cache"
)

// toxicSplit is the fixed probability cutoff that turns a model score into
// a toxic/non-toxic label. It is independent of the operator-configurable
// moderation threshold applied downstream.
const toxicSplit = 0.5

// Model scores a text, returning the toxicity probability in [0,1].
type Model interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Service classifies message texts for toxicity.
type Service interface {
	Predict(ctx context.Context, text string) (models.Prediction, error)
	BatchPredict(ctx context.Context, texts []string) ([]models.Prediction, error)
	CacheStats() models.CacheStats
}

// PredictionError reports a failed classifier invocation. Callers on the
// message-handling path must treat the message as not analyzed rather than
// crash the update loop.
type PredictionError struct {
	cause error
}

func (e *PredictionError) Error() string {
	return "toxicity prediction failed: " + e.cause.Error()
}

func (e *PredictionError) Unwrap() error {
	return e.cause
}

// Scorer implements Service over an opaque model with prediction caching.
type Scorer struct {
	model   Model
	cache   *cache.PredictionCache
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

// NewScorer creates a classifier service
func NewScorer(model Model, cache *cache.PredictionCache, metrics *middleware.Metrics, logger *logrus.Logger) *Scorer {
	return &Scorer{
		model:   model,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Predict classifies a single text, consulting the prediction cache first.
func (s *Scorer) Predict(ctx context.Context, text string) (models.Prediction, error) {
	p, hit, err := s.cache.GetOrCompute(text, func() (models.Prediction, error) {
		probability, err := s.model.Score(ctx, text)
		if err != nil {
			return models.Prediction{}, &PredictionError{cause: err}
		}

		return models.Prediction{
			IsToxic:    probability > toxicSplit,
			Confidence: probability,
		}, nil
	})
	if err != nil {
		return models.Prediction{}, err
	}

	if hit {
		s.metrics.RecordCacheHit()
	} else {
		s.metrics.RecordCacheMiss()
	}

	s.logger.WithFields(logrus.Fields{
		"is_toxic":   p.IsToxic,
		"confidence": p.Confidence,
		"cache_hit":  hit,
	}).Debug("Text classified")

	return p, nil
}

// BatchPredict classifies each text independently, in input order. Items
// still hit the cache individually; the first failure aborts the batch.
func (s *Scorer) BatchPredict(ctx context.Context, texts []string) ([]models.Prediction, error) {
	results := make([]models.Prediction, 0, len(texts))
	for _, text := range texts {
		p, err := s.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, nil
}

// CacheStats reports prediction cache usage.
func (s *Scorer) CacheStats() models.CacheStats {
	return s.cache.Stats()
}
