package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/metrics"
	"go.uber.org/zap"
)

const (
	serviceName    = "summarizer"
	apiVersion     = "2023-06-01"
	maxBodyExcerpt = 512
)

// Config configures the text generation client.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client calls a messages-style text generation API.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Recorder
	logger  *zap.Logger
}

// NewClient creates a summarizer client.
func NewClient(cfg Config, recorder *metrics.Recorder, logger *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: recorder,
		logger:  logger,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize sends prompt and document and returns the concatenated text of
// every content fragment, or summary.Placeholder when none carries text.
func (c *Client) Summarize(ctx context.Context, prompt string, document []byte) (string, error) {
	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		c.metrics.ObserveUpstream(serviceName, "messages", outcome, time.Since(start))
	}()

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    prompt,
		Messages:  []message{{Role: "user", Content: string(document)}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", apiVersion)
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests {
			outcome = metrics.OutcomeRateLimited
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
		return "", &summary.Failure{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Warn("summary response is not valid JSON", zap.Error(err))
		outcome = metrics.OutcomeOK
		return summary.Placeholder, nil
	}

	var sb strings.Builder
	for _, part := range parsed.Content {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	outcome = metrics.OutcomeOK

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return summary.Placeholder, nil
	}
	return text, nil
}
