package handlers

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/toxguard/tgbot/internal/i18n"
	"github.com/toxguard/tgbot/internal/models"
	"github.com/toxguard/tgbot/internal/services/modlog"
)

var titleCaser = cases.Title(language.English)

// formatReport renders a classification report for one analyzed text.
func formatReport(localizer *i18n.Localizer, lang, content string, p models.Prediction) string {
	status := "🟢 Non-toxic"
	if p.IsToxic {
		status = "🔴 Toxic"
	}

	return localizer.Get(lang, i18n.MsgReport, map[string]interface{}{
		"Status":     status,
		"Confidence": fmt.Sprintf("%.2f", p.Confidence*100),
		"Content":    content,
	})
}

// formatHistory renders a user's moderation history as markdown.
func formatHistory(localizer *i18n.Localizer, lang string, entries []modlog.Entry) string {
	if len(entries) == 0 {
		return localizer.Get(lang, i18n.MsgHistoryEmpty, nil)
	}

	lines := []string{localizer.Get(lang, i18n.MsgHistoryHeader, nil)}
	for _, entry := range entries {
		timestamp := entry.Timestamp
		if ts, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil {
			timestamp = ts.Format("2006-01-02 15:04:05")
		}

		action := titleCaser.String(strings.ReplaceAll(entry.Action, "_", " "))
		lines = append(lines, fmt.Sprintf("• %s - %s (%.2f%%)", timestamp, action, entry.Confidence*100))
	}

	return strings.Join(lines, "\n")
}

// formatStats renders cache usage and the active threshold.
func formatStats(localizer *i18n.Localizer, lang string, stats models.CacheStats, threshold float64) string {
	return localizer.Get(lang, i18n.MsgStats, map[string]interface{}{
		"CacheSize":     stats.Size,
		"CacheCapacity": stats.Capacity,
		"Threshold":     fmt.Sprintf("%.2f", threshold),
	})
}
