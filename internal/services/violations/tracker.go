package violations

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/services/storage"
)

// Tracker keeps a monotonic violation counter per user. An unseen user is
// at zero, so the first recorded violation returns 1.
type Tracker struct {
	storage *storage.Manager
	logger  *logrus.Logger
}

// NewTracker creates a violation tracker
func NewTracker(storage *storage.Manager, logger *logrus.Logger) *Tracker {
	return &Tracker{storage: storage, logger: logger}
}

// RecordViolation increments the user's counter and returns the new count.
func (t *Tracker) RecordViolation(ctx context.Context, userID int64) (int, error) {
	count, err := t.storage.IncrementViolations(ctx, userID)
	if err != nil {
		return 0, err
	}

	t.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"count":   count,
	}).Info("Violation recorded")

	return count, nil
}

// Count returns the user's current violation count without recording one.
func (t *Tracker) Count(ctx context.Context, userID int64) (int, error) {
	return t.storage.ViolationCount(ctx, userID)
}
