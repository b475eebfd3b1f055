package settings

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Defaults backfill any key missing from the settings file.
const (
	DefaultToxicityThreshold = 0.5
	DefaultWarningThreshold  = 3
	DefaultCacheSize         = 1000
)

// ErrThresholdRange is returned when a threshold outside [0,1] is rejected.
var ErrThresholdRange = errors.New("threshold must be between 0 and 1")

// Store holds the operator-tunable moderation settings, backed by a YAML
// file. A missing or unreadable file means pure defaults; the file is only
// created on the first mutation. Every mutation persists immediately.
type Store struct {
	mu     sync.RWMutex
	v      *viper.Viper
	path   string
	logger *logrus.Logger
}

// NewStore loads settings from path, falling back to defaults on any
// read or parse failure.
func NewStore(path string, logger *logrus.Logger) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("toxicity_threshold", DefaultToxicityThreshold)
	v.SetDefault("warning_threshold", DefaultWarningThreshold)
	v.SetDefault("cache_size", DefaultCacheSize)
	v.SetDefault("log_channel", int64(0))

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			logger.WithField("path", path).Debug("No settings file, using defaults")
		} else {
			logger.WithError(err).Warn("Failed to load settings file, using defaults")
		}
	}

	return &Store{v: v, path: path, logger: logger}
}

// Threshold returns the moderation threshold: the probability cutoff above
// which a toxic classification triggers escalation.
func (s *Store) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetFloat64("toxicity_threshold")
}

// WarningThreshold returns the configured warning count setting.
func (s *Store) WarningThreshold() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt("warning_threshold")
}

// CacheSize returns the prediction cache capacity.
func (s *Store) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt("cache_size")
}

// LogChannel returns the moderation alert channel id, 0 when unset.
func (s *Store) LogChannel() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt64("log_channel")
}

// SetThreshold validates and persists a new moderation threshold. Values
// outside [0,1] are rejected without touching the stored settings; the
// bounds themselves are accepted.
func (s *Store) SetThreshold(value float64) error {
	if value < 0 || value > 1 {
		return ErrThresholdRange
	}
	return s.set("toxicity_threshold", value)
}

// SetLogChannel persists the moderation alert channel id.
func (s *Store) SetLogChannel(channelID int64) error {
	return s.set("log_channel", channelID)
}

func (s *Store) set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"key":   key,
		"value": value,
	}).Info("Setting updated")

	return nil
}
