// Package gemini implements document summarization using Google's
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/phrazzld/docpipe/internal/config"
)

// summaryPromptPrefix precedes the document text in every request.
const summaryPromptPrefix = "Summarize the following document in 5-7 concise sentences:"

// Errors returned by the summarizer.
var (
	// ErrEmptyText is returned when there is no text to summarize.
	ErrEmptyText = errors.New("empty document text")

	// ErrEmptyResponse is returned when the API responds without any
	// usable summary text.
	ErrEmptyResponse = errors.New("empty summarization response")
)

// Summarizer generates document summaries via the Gemini API. Calls
// are rate limited and retried with a fixed delay up to a configured
// attempt limit.
type Summarizer struct {
	client     *genai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewSummarizer creates a Gemini-backed summarizer. The API key must
// be non-empty; callers decide what a missing key means for them.
func NewSummarizer(ctx context.Context, cfg config.SummarizerConfig, log *slog.Logger) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Summarizer{
		client:     client,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelaySeconds) * time.Second,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1),
		logger:     log.With(slog.String("component", "gemini_summarizer")),
	}, nil
}

// Summarize generates a short summary of the given text. Each attempt
// waits on the rate limiter first; failures are retried until the
// attempt limit is reached.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	prompt := summaryPromptPrefix + "\n\n" + text

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait: %w", err)
		}

		summary, err := s.generate(ctx, prompt)
		if err == nil {
			return summary, nil
		}
		lastErr = err

		s.logger.Warn("summarization attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", s.maxRetries),
			slog.String("error", err.Error()))

		if attempt < s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("summarization failed after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return "", ErrEmptyResponse
	}
	return summary, nil
}
