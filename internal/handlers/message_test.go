package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxguard/tgbot/internal/middleware"
	"github.com/toxguard/tgbot/internal/models"
	"github.com/toxguard/tgbot/internal/services/settings"
)

type fakeClassifier struct {
	prediction models.Prediction
	err        error
	calls      int
}

func (f *fakeClassifier) Predict(ctx context.Context, text string) (models.Prediction, error) {
	f.calls++
	if f.err != nil {
		return models.Prediction{}, f.err
	}
	return f.prediction, nil
}

func (f *fakeClassifier) BatchPredict(ctx context.Context, texts []string) ([]models.Prediction, error) {
	results := make([]models.Prediction, 0, len(texts))
	for range texts {
		p, err := f.Predict(ctx, "")
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, nil
}

func (f *fakeClassifier) CacheStats() models.CacheStats {
	return models.CacheStats{}
}

type fakeEngine struct {
	violations []models.Violation
	err        error
}

func (f *fakeEngine) HandleViolation(ctx context.Context, v models.Violation) error {
	f.violations = append(f.violations, v)
	return f.err
}

type fakeLimiter struct {
	allow bool
}

func (f *fakeLimiter) Allow(userID int64) bool { return f.allow }
func (f *fakeLimiter) Reset(userID int64)      {}

func newMessageHandler(t *testing.T, c *fakeClassifier, e *fakeEngine, allow bool) *MessageHandler {
	t.Helper()

	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"), logrus.New())

	return NewMessageHandler(c, e, store, &fakeLimiter{allow: allow}, middleware.NewMetrics(), logrus.New())
}

func groupMessage(userID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			From: &tgbotapi.User{ID: userID, UserName: "someone"},
			Chat: &tgbotapi.Chat{ID: -2001, Type: "group", Title: "general"},
		},
	}
}

func TestToxicMessageAboveThresholdEscalates(t *testing.T) {
	c := &fakeClassifier{prediction: models.Prediction{IsToxic: true, Confidence: 0.9}}
	e := &fakeEngine{}
	h := newMessageHandler(t, c, e, true)

	err := h.HandleMessage(context.Background(), groupMessage(11, "you are awful"))
	require.NoError(t, err)

	require.Len(t, e.violations, 1)
	v := e.violations[0]
	assert.Equal(t, int64(11), v.UserID)
	assert.Equal(t, "@someone", v.UserName)
	assert.Equal(t, int64(-2001), v.ChatID)
	assert.Equal(t, "general", v.ChatTitle)
	assert.Equal(t, "you are awful", v.Content)
	assert.Equal(t, 0.9, v.Confidence)
}

func TestToxicBelowThresholdIgnored(t *testing.T) {
	// Toxic per the fixed split but not above the default 0.5 moderation
	// threshold
	c := &fakeClassifier{prediction: models.Prediction{IsToxic: true, Confidence: 0.5}}
	e := &fakeEngine{}
	h := newMessageHandler(t, c, e, true)

	require.NoError(t, h.HandleMessage(context.Background(), groupMessage(1, "borderline")))
	assert.Empty(t, e.violations)
}

func TestNonToxicMessageIgnored(t *testing.T) {
	c := &fakeClassifier{prediction: models.Prediction{IsToxic: false, Confidence: 0.2}}
	e := &fakeEngine{}
	h := newMessageHandler(t, c, e, true)

	require.NoError(t, h.HandleMessage(context.Background(), groupMessage(1, "hello")))
	assert.Empty(t, e.violations)
}

func TestClassifierFailureSkipsMessage(t *testing.T) {
	c := &fakeClassifier{err: errors.New("model unavailable")}
	e := &fakeEngine{}
	h := newMessageHandler(t, c, e, true)

	err := h.HandleMessage(context.Background(), groupMessage(1, "whatever"))
	require.NoError(t, err, "classifier failure must not escape the handler")
	assert.Empty(t, e.violations, "unanalyzed message must not be escalated")
}

func TestBotMessagesIgnored(t *testing.T) {
	c := &fakeClassifier{prediction: models.Prediction{IsToxic: true, Confidence: 0.99}}
	e := &fakeEngine{}
	h := newMessageHandler(t, c, e, true)

	update := groupMessage(1, "bot noise")
	update.Message.From.IsBot = true

	require.NoError(t, h.HandleMessage(context.Background(), update))
	assert.Zero(t, c.calls, "bot-authored messages never reach the classifier")
	assert.Empty(t, e.violations)
}

func TestRateLimitedMessageSkipped(t *testing.T) {
	c := &fakeClassifier{prediction: models.Prediction{IsToxic: true, Confidence: 0.99}}
	e := &fakeEngine{}
	h := newMessageHandler(t, c, e, false)

	require.NoError(t, h.HandleMessage(context.Background(), groupMessage(1, "spam spam")))
	assert.Zero(t, c.calls)
}

func TestEmptyAndNilMessagesIgnored(t *testing.T) {
	c := &fakeClassifier{}
	e := &fakeEngine{}
	h := newMessageHandler(t, c, e, true)

	require.NoError(t, h.HandleMessage(context.Background(), &tgbotapi.Update{}))
	require.NoError(t, h.HandleMessage(context.Background(), groupMessage(1, "")))
	assert.Zero(t, c.calls)
}

func TestEngineErrorPropagates(t *testing.T) {
	c := &fakeClassifier{prediction: models.Prediction{IsToxic: true, Confidence: 0.9}}
	e := &fakeEngine{err: errors.New("log write failed")}
	h := newMessageHandler(t, c, e, true)

	err := h.HandleMessage(context.Background(), groupMessage(1, "toxic"))
	require.Error(t, err)
}
