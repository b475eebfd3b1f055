package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/config"
	"github.com/toxguard/tgbot/internal/i18n"
	"github.com/toxguard/tgbot/internal/middleware"
	"github.com/toxguard/tgbot/internal/services/classifier"
	"github.com/toxguard/tgbot/internal/services/modlog"
	"github.com/toxguard/tgbot/internal/services/settings"
	"github.com/toxguard/tgbot/pkg/markdown"
)

// CommandHandler handles operator commands
type CommandHandler struct {
	bot        *tgbotapi.BotAPI
	config     *config.Config
	classifier classifier.Service
	modlog     *modlog.Log
	settings   *settings.Store
	localizer  *i18n.Localizer
	metrics    *middleware.Metrics
	logger     *logrus.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	bot *tgbotapi.BotAPI,
	cfg *config.Config,
	classifierService classifier.Service,
	log *modlog.Log,
	settingsStore *settings.Store,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *CommandHandler {
	return &CommandHandler{
		bot:        bot,
		config:     cfg,
		classifier: classifierService,
		modlog:     log,
		settings:   settingsStore,
		localizer:  localizer,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleCommand processes operator commands
func (h *CommandHandler) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	lang := h.config.I18n.DefaultLanguage

	switch message.Command() {
	case "start":
		return h.reply(chatID, h.localizer.Get(lang, i18n.MsgWelcome, nil))
	case "help":
		return h.replyMarkdown(chatID, h.localizer.Get(lang, i18n.MsgHelp, nil))
	case "check":
		return h.handleCheck(ctx, chatID, lang, message.CommandArguments())
	case "history":
		if !h.isAdmin(userID) {
			return h.reply(chatID, h.localizer.Get(lang, i18n.MsgNotAuthorized, nil))
		}
		return h.handleHistory(chatID, lang, message.CommandArguments())
	case "threshold":
		if !h.isAdmin(userID) {
			return h.reply(chatID, h.localizer.Get(lang, i18n.MsgNotAuthorized, nil))
		}
		return h.handleThreshold(chatID, lang, message.CommandArguments())
	case "stats":
		return h.handleStats(chatID, lang)
	default:
		return h.reply(chatID, h.localizer.Get(lang, i18n.MsgUnknownCommand, nil))
	}
}

// handleCheck analyzes the given text and replies with a classification
// report.
func (h *CommandHandler) handleCheck(ctx context.Context, chatID int64, lang, args string) error {
	text := strings.TrimSpace(args)
	if text == "" {
		return h.reply(chatID, h.localizer.Get(lang, i18n.MsgCheckUsage, nil))
	}

	prediction, err := h.classifier.Predict(ctx, text)
	if err != nil {
		h.logger.WithError(err).Warn("Check command failed")
		return h.reply(chatID, h.localizer.Get(lang, i18n.MsgCheckNotAnalyzed, nil))
	}

	return h.replyMarkdown(chatID, formatReport(h.localizer, lang, text, prediction))
}

// handleHistory replies with a user's moderation history from the current
// month's log.
func (h *CommandHandler) handleHistory(chatID int64, lang, args string) error {
	userID, limit, err := parseHistoryArgs(args)
	if err != nil {
		return h.reply(chatID, h.localizer.Get(lang, i18n.MsgHistoryUsage, nil))
	}

	entries := h.modlog.History(userID, limit)
	return h.replyMarkdown(chatID, formatHistory(h.localizer, lang, entries))
}

// handleThreshold validates and persists a new toxicity threshold.
func (h *CommandHandler) handleThreshold(chatID int64, lang, args string) error {
	value, err := strconv.ParseFloat(strings.TrimSpace(args), 64)
	if err != nil {
		return h.reply(chatID, h.localizer.Get(lang, i18n.MsgThresholdUsage, nil))
	}

	if err := h.settings.SetThreshold(value); err != nil {
		if errors.Is(err, settings.ErrThresholdRange) {
			return h.reply(chatID, h.localizer.Get(lang, i18n.MsgThresholdRange, nil))
		}
		h.logger.WithError(err).Error("Failed to persist threshold")
		return h.reply(chatID, h.localizer.Get(lang, i18n.MsgError, nil))
	}

	return h.reply(chatID, h.localizer.Get(lang, i18n.MsgThresholdSet, map[string]interface{}{
		"Value": fmt.Sprintf("%.2f", value),
	}))
}

// handleStats replies with cache usage and the active threshold.
func (h *CommandHandler) handleStats(chatID int64, lang string) error {
	stats := h.classifier.CacheStats()
	return h.replyMarkdown(chatID, formatStats(h.localizer, lang, stats, h.settings.Threshold()))
}

func (h *CommandHandler) isAdmin(userID int64) bool {
	for _, id := range h.config.Bot.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (h *CommandHandler) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := h.bot.Send(msg)
	return err
}

func (h *CommandHandler) replyMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, markdown.ToTelegramHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := h.bot.Send(msg)
	return err
}

// parseHistoryArgs parses "<user_id> [limit]" command arguments.
func parseHistoryArgs(args string) (int64, int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, 0, fmt.Errorf("expected <user_id> [limit], got %q", args)
	}

	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid user id %q: %w", fields[0], err)
	}

	limit := 0
	if len(fields) == 2 {
		limit, err = strconv.Atoi(fields[1])
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q", fields[1])
		}
	}

	return userID, limit, nil
}
