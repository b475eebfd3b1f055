package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxguard/tgbot/internal/middleware"
	"github.com/toxguard/tgbot/internal/services/cache"
)

type fakeModel struct {
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeModel) Score(ctx context.Context, text string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.scores[text], nil
}

func newScorer(t *testing.T, model Model) *Scorer {
	t.Helper()

	logger := logrus.New()
	c, err := cache.NewPredictionCache(100, logger)
	require.NoError(t, err)

	return NewScorer(model, c, middleware.NewMetrics(), logger)
}

func TestPredictAppliesFixedSplit(t *testing.T) {
	model := &fakeModel{scores: map[string]float64{
		"nasty":      0.93,
		"borderline": 0.5,
		"friendly":   0.02,
	}}
	s := newScorer(t, model)

	p, err := s.Predict(context.Background(), "nasty")
	require.NoError(t, err)
	assert.True(t, p.IsToxic)
	assert.Equal(t, 0.93, p.Confidence, "confidence is the raw probability")

	// Exactly 0.5 sits on the non-toxic side of the split
	p, err = s.Predict(context.Background(), "borderline")
	require.NoError(t, err)
	assert.False(t, p.IsToxic)
	assert.Equal(t, 0.5, p.Confidence)

	p, err = s.Predict(context.Background(), "friendly")
	require.NoError(t, err)
	assert.False(t, p.IsToxic)
	assert.Equal(t, 0.02, p.Confidence)
}

func TestPredictUsesCache(t *testing.T) {
	model := &fakeModel{scores: map[string]float64{"hi": 0.7}}
	s := newScorer(t, model)

	first, err := s.Predict(context.Background(), "hi")
	require.NoError(t, err)

	second, err := s.Predict(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.calls, "cached text must not reach the model again")
}

func TestPredictSurfacesPredictionError(t *testing.T) {
	cause := errors.New("inference endpoint down")
	s := newScorer(t, &fakeModel{err: cause})

	_, err := s.Predict(context.Background(), "anything")
	require.Error(t, err)

	var perr *PredictionError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, cause)
}

func TestBatchPredictPreservesOrder(t *testing.T) {
	model := &fakeModel{scores: map[string]float64{
		"a": 0.9,
		"b": 0.1,
		"c": 0.8,
	}}
	s := newScorer(t, model)

	results, err := s.BatchPredict(context.Background(), []string{"a", "b", "c", "a"})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].IsToxic)
	assert.False(t, results[1].IsToxic)
	assert.True(t, results[2].IsToxic)
	assert.Equal(t, results[0], results[3])
	assert.Equal(t, 3, model.calls, "repeated item served from cache")
}

func TestCacheStats(t *testing.T) {
	model := &fakeModel{scores: map[string]float64{"x": 0.3}}
	s := newScorer(t, model)

	_, err := s.Predict(context.Background(), "x")
	require.NoError(t, err)

	stats := s.CacheStats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 100, stats.Capacity)
}
