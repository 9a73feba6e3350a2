// Package summary generates end-of-session summaries with bounded retries.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/raphaelgruber/medconsult-go/internal/client"
	"github.com/raphaelgruber/medconsult-go/internal/models"
)

// ErrNoConversation is returned when asked to summarize without a conversation id.
var ErrNoConversation = errors.New("summary requires a conversation id")

// Generator asks the remote service for a summary. *client.Client satisfies it.
type Generator interface {
	GenerateSummary(ctx context.Context, conversationID string) (*models.Summary, error)
}

// Service generates summaries, retrying transient failures with exponential backoff.
type Service struct {
	generator       Generator
	maxRetries      int
	initialInterval time.Duration
	logger          *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithInitialInterval sets the wait before the first retry. Later waits grow exponentially.
func WithInitialInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.initialInterval = d
		}
	}
}

// NewService creates a summary service. maxRetries bounds the retries after the
// first attempt; 0 disables retrying.
func NewService(generator Generator, maxRetries int, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	s := &Service{
		generator:       generator,
		maxRetries:      maxRetries,
		initialInterval: 500 * time.Millisecond,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate returns the summary for a conversation. Decode failures and client-side
// (4xx) rejections are not retried.
func (s *Service) Generate(ctx context.Context, conversationID string) (*models.Summary, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrNoConversation
	}

	attempt := 0
	operation := func() (*models.Summary, error) {
		attempt++
		summary, err := s.generator.GenerateSummary(ctx, conversationID)
		if err == nil {
			return summary, nil
		}
		if !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("summary generation failed, retrying",
			"conversation_id", conversationID,
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err)
	}

	start := time.Now()
	summary, err := backoff.RetryNotifyWithData(operation, s.policy(ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("generate summary after %d attempt(s): %w", attempt, err)
	}

	s.logger.Info("summary generated",
		"conversation_id", conversationID,
		"attempts", attempt,
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(summary.Text))
	return summary, nil
}

func (s *Service) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialInterval
	b.MaxInterval = 10 * s.initialInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxRetries)), ctx)
}

// retryable reports whether a failure may succeed on a later attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case client.KindNetwork:
		return true
	case client.KindServer:
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}
