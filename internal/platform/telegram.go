package platform

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// ErrPermissionDenied reports that the platform refused an outbound action,
// e.g. the bot lacks rights in a chat or the user blocked direct messages.
var ErrPermissionDenied = errors.New("platform permission denied")

// Actions is the outbound capability set the moderation core needs from the
// chat platform. Implementations map platform-specific failures to
// ErrPermissionDenied so callers can branch on the outcome explicitly.
type Actions interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDirectMessage(ctx context.Context, userID int64, text string) error
	RestrictUser(ctx context.Context, chatID, userID int64, duration time.Duration, reason string) error
}

// Telegram implements Actions over the Telegram bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	logger *logrus.Logger
}

// NewTelegram creates a Telegram platform adapter
func NewTelegram(bot *tgbotapi.BotAPI, logger *logrus.Logger) *Telegram {
	return &Telegram{bot: bot, logger: logger}
}

// SendMessage sends a plain message to a chat.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return t.wrap(err)
	}
	return nil
}

// SendDirectMessage sends a private message to a user. On Telegram a user's
// private chat id equals the user id.
func (t *Telegram) SendDirectMessage(ctx context.Context, userID int64, text string) error {
	return t.SendMessage(ctx, userID, text)
}

// RestrictUser temporarily removes a user's ability to send messages in a
// chat. The reason is recorded in the bot's own log; Telegram has no reason
// field on restrictions.
func (t *Telegram) RestrictUser(ctx context.Context, chatID, userID int64, duration time.Duration, reason string) error {
	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		UntilDate: time.Now().Add(duration).Unix(),
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages: false,
		},
	}

	if _, err := t.bot.Request(restrict); err != nil {
		return t.wrap(err)
	}

	t.logger.WithFields(logrus.Fields{
		"chat_id":  chatID,
		"user_id":  userID,
		"duration": duration,
		"reason":   reason,
	}).Info("User restricted")

	return nil
}

// wrap maps Telegram API errors onto the action outcome taxonomy.
func (t *Telegram) wrap(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "forbidden") || strings.Contains(msg, "not enough rights") || strings.Contains(msg, "chat_admin_required") {
		return errors.Join(ErrPermissionDenied, err)
	}
	return err
}
