package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/config"
	"github.com/toxguard/tgbot/internal/middleware"
)

// RemoteModel scores texts against an HTTP inference endpoint serving the
// toxicity model.
type RemoteModel struct {
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
	metrics    *middleware.Metrics
	logger     *logrus.Logger
}

// NewRemoteModel creates a remote model client
func NewRemoteModel(cfg *config.ClassifierConfig, metrics *middleware.Metrics, logger *logrus.Logger) *RemoteModel {
	return &RemoteModel{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Probability float64 `json:"probability"`
}

// Score returns the toxicity probability for text, retrying transient
// failures with exponential backoff.
func (m *RemoteModel) Score(ctx context.Context, text string) (float64, error) {
	var lastErr error

	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		probability, err := m.score(ctx, text)
		if err == nil {
			return probability, nil
		}

		lastErr = err
		m.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Classifier request failed, retrying...")

		if attempt < m.maxRetries {
			// Exponential backoff: 2s, 4s, 8s
			waitTime := time.Duration(2<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(waitTime):
			}
		}
	}

	return 0, fmt.Errorf("classifier request failed after %d attempts: %w", m.maxRetries, lastErr)
}

func (m *RemoteModel) score(ctx context.Context, text string) (float64, error) {
	start := time.Now()

	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.metrics.RecordClassifierRequest("error", time.Since(start))
		return 0, fmt.Errorf("score request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.metrics.RecordClassifierRequest("error", time.Since(start))
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("score request returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		m.metrics.RecordClassifierRequest("error", time.Since(start))
		return 0, fmt.Errorf("failed to decode score response: %w", err)
	}

	if result.Probability < 0 || result.Probability > 1 {
		m.metrics.RecordClassifierRequest("error", time.Since(start))
		return 0, fmt.Errorf("classifier returned probability out of range: %f", result.Probability)
	}

	m.metrics.RecordClassifierRequest("success", time.Since(start))
	return result.Probability, nil
}
