package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/toxguard/tgbot/internal/config"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, lang+".json")
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", path, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgWelcome          = "welcome"
	MsgHelp             = "help"
	MsgUnknownCommand   = "unknown_command"
	MsgNotAuthorized    = "not_authorized"
	MsgError            = "error"
	MsgCheckUsage       = "check_usage"
	MsgCheckNotAnalyzed = "check_not_analyzed"
	MsgReport           = "report"
	MsgHistoryUsage     = "history_usage"
	MsgHistoryEmpty     = "history_empty"
	MsgHistoryHeader    = "history_header"
	MsgThresholdUsage   = "threshold_usage"
	MsgThresholdRange   = "threshold_range"
	MsgThresholdSet     = "threshold_set"
	MsgStats            = "stats"
	MsgModAlert         = "mod_alert"
	MsgModActionFailed  = "mod_action_failed"
	MsgWarningFirst     = "warning_first"
	MsgTimeoutSecond    = "timeout_second"
	MsgTimeoutRepeat    = "timeout_repeat"
)
