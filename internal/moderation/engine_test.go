package moderation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxguard/tgbot/internal/config"
	"github.com/toxguard/tgbot/internal/i18n"
	"github.com/toxguard/tgbot/internal/middleware"
	"github.com/toxguard/tgbot/internal/models"
	"github.com/toxguard/tgbot/internal/platform"
	"github.com/toxguard/tgbot/internal/services/modlog"
	"github.com/toxguard/tgbot/internal/services/settings"
	"github.com/toxguard/tgbot/internal/services/storage"
	"github.com/toxguard/tgbot/internal/services/violations"
)

const modChannelID = int64(-100555)

type actionCall struct {
	kind     string // "send", "dm", "restrict"
	chatID   int64
	userID   int64
	duration time.Duration
	text     string
}

type fakeActions struct {
	calls       []actionCall
	dmErr       error
	restrictErr error
	sendErr     error
}

func (f *fakeActions) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.calls = append(f.calls, actionCall{kind: "send", chatID: chatID, text: text})
	return f.sendErr
}

func (f *fakeActions) SendDirectMessage(ctx context.Context, userID int64, text string) error {
	f.calls = append(f.calls, actionCall{kind: "dm", userID: userID, text: text})
	return f.dmErr
}

func (f *fakeActions) RestrictUser(ctx context.Context, chatID, userID int64, duration time.Duration, reason string) error {
	f.calls = append(f.calls, actionCall{kind: "restrict", chatID: chatID, userID: userID, duration: duration})
	return f.restrictErr
}

func (f *fakeActions) ofKind(kind string) []actionCall {
	var matched []actionCall
	for _, c := range f.calls {
		if c.kind == kind {
			matched = append(matched, c)
		}
	}
	return matched
}

type engineFixture struct {
	engine  *Engine
	actions *fakeActions
	log     *modlog.Log
	logDir  string
}

func newFixture(t *testing.T, logChannel int64) *engineFixture {
	t.Helper()

	logger := logrus.New()

	cfg := &config.Config{}
	cfg.Moderation.ShortTimeout = 10 * time.Second
	cfg.Moderation.LongTimeout = 30 * time.Second
	cfg.Storage.Type = "memory"
	cfg.I18n.DefaultLanguage = "en"

	localizer, err := i18n.NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en"},
		Directory:       "../../configs/i18n",
	})
	require.NoError(t, err)

	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"), logger)
	if logChannel != 0 {
		require.NoError(t, store.SetLogChannel(logChannel))
	}

	manager, err := storage.NewManager(cfg, logger)
	require.NoError(t, err)
	tracker := violations.NewTracker(manager, logger)

	logDir := t.TempDir()
	log, err := modlog.New(logDir, logger)
	require.NoError(t, err)

	actions := &fakeActions{}

	return &engineFixture{
		engine:  NewEngine(cfg, tracker, log, actions, store, localizer, middleware.NewMetrics(), logger),
		actions: actions,
		log:     log,
		logDir:  logDir,
	}
}

func violation(userID int64) models.Violation {
	return models.Violation{
		UserID:     userID,
		UserName:   "troublemaker",
		ChatID:     -1001,
		ChatTitle:  "general",
		Content:    "you are the worst",
		Confidence: 0.9,
	}
}

func TestEscalationSequence(t *testing.T) {
	f := newFixture(t, modChannelID)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.engine.HandleViolation(ctx, violation(42)))
	}

	// First violation: warning only, no restriction yet
	restricts := f.actions.ofKind("restrict")
	require.Len(t, restricts, 2)
	assert.Equal(t, 10*time.Second, restricts[0].duration)
	assert.Equal(t, 30*time.Second, restricts[1].duration)
	assert.Equal(t, int64(42), restricts[0].userID)
	assert.Equal(t, int64(-1001), restricts[0].chatID)

	dms := f.actions.ofKind("dm")
	require.Len(t, dms, 3)
	assert.Contains(t, dms[0].text, "first warning")
	assert.Contains(t, dms[1].text, "second violation")
	assert.Contains(t, dms[1].text, "10s")
	assert.Contains(t, dms[2].text, "violation #3")
	assert.Contains(t, dms[2].text, "30s")

	// One moderation-channel alert per violation
	alerts := f.actions.ofKind("send")
	require.Len(t, alerts, 3)
	for _, alert := range alerts {
		assert.Equal(t, modChannelID, alert.chatID)
		assert.Contains(t, alert.text, "troublemaker")
		assert.Contains(t, alert.text, "general")
		assert.Contains(t, alert.text, "90.00")
		assert.Contains(t, alert.text, "you are the worst")
	}
	assert.Contains(t, alerts[0].text, "#1")
	assert.Contains(t, alerts[2].text, "#3")

	// Exactly 3 log entries for the user
	history := f.log.History(42, 0)
	require.Len(t, history, 3)
	for _, entry := range history {
		assert.Equal(t, "toxic_message_detected", entry.Action)
		assert.Equal(t, "you are the worst", entry.Content)
		assert.Equal(t, 0.9, entry.Confidence)
	}
}

func TestFourthViolationUsesLongTimeout(t *testing.T) {
	f := newFixture(t, modChannelID)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, f.engine.HandleViolation(ctx, violation(7)))
	}

	restricts := f.actions.ofKind("restrict")
	require.Len(t, restricts, 3)
	assert.Equal(t, 30*time.Second, restricts[1].duration)
	assert.Equal(t, 30*time.Second, restricts[2].duration, "duration stays the same past the third violation")
}

func TestAlertPrecedesConsequence(t *testing.T) {
	f := newFixture(t, modChannelID)

	require.NoError(t, f.engine.HandleViolation(context.Background(), violation(1)))

	require.Len(t, f.actions.calls, 2)
	assert.Equal(t, "send", f.actions.calls[0].kind)
	assert.Equal(t, "dm", f.actions.calls[1].kind)
}

func TestPermissionDeniedStillLogs(t *testing.T) {
	f := newFixture(t, modChannelID)
	f.actions.dmErr = platform.ErrPermissionDenied

	require.NoError(t, f.engine.HandleViolation(context.Background(), violation(9)))

	// Alert, then the failure notice on the moderation channel
	sends := f.actions.ofKind("send")
	require.Len(t, sends, 2)
	assert.Contains(t, sends[1].text, "Failed to apply consequences")
	assert.Contains(t, sends[1].text, "troublemaker")

	assert.Len(t, f.log.History(9, 0), 1, "violation is logged despite denied consequence")
}

func TestNonPermissionActionErrorStillLogs(t *testing.T) {
	f := newFixture(t, modChannelID)
	f.actions.restrictErr = errors.New("network down")

	require.NoError(t, f.engine.HandleViolation(context.Background(), violation(3)))
	require.NoError(t, f.engine.HandleViolation(context.Background(), violation(3)))

	// No permission-failure notice for generic errors
	sends := f.actions.ofKind("send")
	assert.Len(t, sends, 2, "only the per-violation alerts")

	assert.Len(t, f.log.History(3, 0), 2)
}

func TestNoModChannelConfigured(t *testing.T) {
	f := newFixture(t, 0)

	require.NoError(t, f.engine.HandleViolation(context.Background(), violation(4)))

	assert.Empty(t, f.actions.ofKind("send"))
	assert.Len(t, f.actions.ofKind("dm"), 1)
	assert.Len(t, f.log.History(4, 0), 1)
}

func TestLogWriteFailurePropagates(t *testing.T) {
	f := newFixture(t, modChannelID)
	require.NoError(t, os.RemoveAll(f.logDir))

	err := f.engine.HandleViolation(context.Background(), violation(2))
	require.Error(t, err)
}
