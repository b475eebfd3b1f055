package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/middleware"
	"github.com/toxguard/tgbot/internal/models"
	"github.com/toxguard/tgbot/internal/services/classifier"
	"github.com/toxguard/tgbot/internal/services/settings"
)

// ViolationHandler receives detected violations for escalation.
type ViolationHandler interface {
	HandleViolation(ctx context.Context, v models.Violation) error
}

// MessageHandler scans regular messages for toxicity
type MessageHandler struct {
	classifier  classifier.Service
	engine      ViolationHandler
	settings    *settings.Store
	rateLimiter middleware.RateLimiter
	metrics     *middleware.Metrics
	logger      *logrus.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(
	classifierService classifier.Service,
	engine ViolationHandler,
	settingsStore *settings.Store,
	rateLimiter middleware.RateLimiter,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *MessageHandler {
	return &MessageHandler{
		classifier:  classifierService,
		engine:      engine,
		settings:    settingsStore,
		rateLimiter: rateLimiter,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleMessage classifies one inbound message and escalates if it is toxic
// above the configured threshold. A classifier failure means the message is
// treated as not analyzed; the update loop stays alive.
func (h *MessageHandler) HandleMessage(ctx context.Context, update *tgbotapi.Update) error {
	message := update.Message
	if message == nil || message.IsCommand() || message.Text == "" {
		return nil
	}
	if message.From == nil || message.From.IsBot {
		return nil
	}

	chatType := "private"
	if message.Chat.IsGroup() || message.Chat.IsSuperGroup() {
		chatType = "group"
	}
	h.metrics.RecordMessageScanned(chatType)

	userID := message.From.ID

	if !h.rateLimiter.Allow(userID) {
		h.metrics.RecordMessageSkipped("rate_limited")
		h.metrics.RecordRateLimitExceeded()
		return nil
	}

	prediction, err := h.classifier.Predict(ctx, message.Text)
	if err != nil {
		h.metrics.RecordMessageSkipped("classifier_error")
		h.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": message.Chat.ID,
			"user_id": userID,
		}).Warn("Message not analyzed")
		return nil
	}

	threshold := h.settings.Threshold()
	if !prediction.IsToxic || prediction.Confidence <= threshold {
		return nil
	}

	return h.engine.HandleViolation(ctx, models.Violation{
		UserID:     userID,
		UserName:   displayName(message.From),
		ChatID:     message.Chat.ID,
		ChatTitle:  chatTitle(message.Chat),
		Content:    message.Text,
		Confidence: prediction.Confidence,
	})
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return user.FirstName
}

func chatTitle(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	return "private chat"
}
