package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/config"
	"github.com/toxguard/tgbot/internal/i18n"
	"github.com/toxguard/tgbot/internal/middleware"
	"github.com/toxguard/tgbot/internal/models"
	"github.com/toxguard/tgbot/internal/platform"
	"github.com/toxguard/tgbot/internal/services/modlog"
	"github.com/toxguard/tgbot/internal/services/settings"
	"github.com/toxguard/tgbot/internal/services/violations"
)

// actionLogType is the moderation log entry type written for every handled
// violation.
const actionLogType = "toxic_message_detected"

// Engine applies escalating consequences to toxic messages. Per user, the
// first violation draws a direct warning, the second a short mute, the third
// and every later one a longer mute. Every violation additionally raises a
// moderation-channel alert and a moderation log entry.
type Engine struct {
	tracker      *violations.Tracker
	log          *modlog.Log
	actions      platform.Actions
	settings     *settings.Store
	localizer    *i18n.Localizer
	metrics      *middleware.Metrics
	logger       *logrus.Logger
	lang         string
	shortTimeout time.Duration
	longTimeout  time.Duration
}

// NewEngine creates an escalation engine
func NewEngine(
	cfg *config.Config,
	tracker *violations.Tracker,
	log *modlog.Log,
	actions platform.Actions,
	settingsStore *settings.Store,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Engine {
	return &Engine{
		tracker:      tracker,
		log:          log,
		actions:      actions,
		settings:     settingsStore,
		localizer:    localizer,
		metrics:      metrics,
		logger:       logger,
		lang:         cfg.I18n.DefaultLanguage,
		shortTimeout: cfg.Moderation.ShortTimeout,
		longTimeout:  cfg.Moderation.LongTimeout,
	}
}

// HandleViolation runs the full escalation sequence for one detected
// violation: increment the user's counter, alert the moderation channel,
// apply the count-specific consequence, and log the violation. The alert and
// the consequence are best-effort; a moderation log write failure is
// returned because log persistence is a hard dependency of violation
// handling.
func (e *Engine) HandleViolation(ctx context.Context, v models.Violation) error {
	count, err := e.tracker.RecordViolation(ctx, v.UserID)
	if err != nil {
		return fmt.Errorf("failed to record violation: %w", err)
	}

	e.metrics.RecordViolationDetected()

	e.alertModerators(ctx, v, count)
	e.applyConsequence(ctx, v, count)

	if _, err := e.log.Append(actionLogType, modlog.Entry{
		UserID:     v.UserID,
		Content:    v.Content,
		Confidence: v.Confidence,
	}); err != nil {
		e.metrics.RecordLogAppend("error")
		return err
	}
	e.metrics.RecordLogAppend("success")

	return nil
}

// alertModerators sends the per-violation alert to the configured moderation
// channel. Best-effort: a send failure is logged and handling continues.
func (e *Engine) alertModerators(ctx context.Context, v models.Violation, count int) {
	channelID := e.settings.LogChannel()
	if channelID == 0 {
		return
	}

	text := e.localizer.Get(e.lang, i18n.MsgModAlert, map[string]interface{}{
		"User":       v.UserName,
		"Channel":    v.ChatTitle,
		"Confidence": fmt.Sprintf("%.2f", v.Confidence*100),
		"Count":      count,
		"Content":    v.Content,
	})

	if err := e.actions.SendMessage(ctx, channelID, text); err != nil {
		e.logger.WithError(err).Warn("Failed to send moderation alert")
	}
}

// applyConsequence applies the count-specific user consequence. Permission
// failures are reported to the moderation channel; the violation is still
// logged by the caller either way.
func (e *Engine) applyConsequence(ctx context.Context, v models.Violation, count int) {
	var (
		action string
		err    error
	)

	switch count {
	case 1:
		action = "warning"
		err = e.actions.SendDirectMessage(ctx, v.UserID, e.localizer.Get(e.lang, i18n.MsgWarningFirst, map[string]interface{}{
			"Channel": v.ChatTitle,
		}))
	case 2:
		action = "short_timeout"
		err = e.restrictAndNotify(ctx, v, e.shortTimeout, "second toxic message violation",
			i18n.MsgTimeoutSecond, map[string]interface{}{
				"Channel":  v.ChatTitle,
				"Duration": e.shortTimeout.String(),
			})
	default:
		action = "long_timeout"
		err = e.restrictAndNotify(ctx, v, e.longTimeout, fmt.Sprintf("toxic message violation #%d", count),
			i18n.MsgTimeoutRepeat, map[string]interface{}{
				"Channel":  v.ChatTitle,
				"Count":    count,
				"Duration": e.longTimeout.String(),
			})
	}

	switch {
	case err == nil:
		e.metrics.RecordModerationAction(action, "applied")
	case errors.Is(err, platform.ErrPermissionDenied):
		e.metrics.RecordModerationAction(action, "denied")
		e.reportActionFailure(ctx, v)
	default:
		e.metrics.RecordModerationAction(action, "error")
		e.logger.WithError(err).WithField("user_id", v.UserID).Error("Failed to apply moderation consequence")
	}
}

// restrictAndNotify mutes the user and explains the restriction in a direct
// message.
func (e *Engine) restrictAndNotify(ctx context.Context, v models.Violation, duration time.Duration, reason, messageID string, data map[string]interface{}) error {
	if err := e.actions.RestrictUser(ctx, v.ChatID, v.UserID, duration, reason); err != nil {
		return err
	}
	return e.actions.SendDirectMessage(ctx, v.UserID, e.localizer.Get(e.lang, messageID, data))
}

// reportActionFailure tells the moderation channel that the consequence
// could not be applied. Best-effort.
func (e *Engine) reportActionFailure(ctx context.Context, v models.Violation) {
	channelID := e.settings.LogChannel()
	if channelID == 0 {
		return
	}

	text := e.localizer.Get(e.lang, i18n.MsgModActionFailed, map[string]interface{}{
		"User": v.UserName,
	})
	if err := e.actions.SendMessage(ctx, channelID, text); err != nil {
		e.logger.WithError(err).Warn("Failed to report moderation action failure")
	}
}
