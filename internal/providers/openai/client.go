// Package openai calls an OpenAI-compatible /chat/completions endpoint to
// derive lecture insights and test-prep guides.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lectern/internal/domain"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 800

	maxResponseSize = 4 << 20
)

// Config controls the chat completions endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client implements ports.InsightGenerator and ports.TestPrepGenerator.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// GenerateInsights asks for the insights document for one transcript.
func (c *Client) GenerateInsights(ctx context.Context, transcript string) (domain.Insights, error) {
	text, err := c.complete(ctx, []oaiMessage{
		{Role: "user", Content: insightsPrompt(transcript)},
	}, c.cfg.MaxTokens)
	if err != nil {
		return domain.Insights{}, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return domain.Insights{}, domain.EnrichmentFailed("response was not JSON", err)
	}
	insights, err := domain.ParseInsights([]byte(raw))
	if err != nil {
		return domain.Insights{}, domain.EnrichmentFailed("response was not JSON", err)
	}
	return insights, nil
}

// GenerateTestPrep asks for a study guide. Items are returned as written by
// the model; normalization happens in the caller.
func (c *Client) GenerateTestPrep(ctx context.Context, subject, level string) (domain.TestPrep, error) {
	text, err := c.complete(ctx, []oaiMessage{
		{Role: "system", Content: tutorSystemPrompt},
		{Role: "user", Content: testPrepPrompt(subject, level)},
	}, 0)
	if err != nil {
		return domain.TestPrep{}, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return domain.TestPrep{}, domain.EnrichmentFailed("response was not JSON", err)
	}
	prep, err := domain.ParseTestPrep([]byte(raw))
	if err != nil {
		return domain.TestPrep{}, domain.EnrichmentFailed("response was not JSON", err)
	}
	return prep, nil
}

// complete sends one chat request. maxTokens of zero leaves the limit to
// the provider.
func (c *Client) complete(ctx context.Context, messages []oaiMessage, maxTokens int) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("OPENAI_API_KEY is not configured")
	}

	body, err := json.Marshal(oaiChatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseSize)
	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(limited).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("openai api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("openai api error: %s", resp.Status)
	}

	var chatResp oaiChatResponse
	if err := json.NewDecoder(limited).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("openai decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("empty response from openai api")
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty response from openai api")
	}
	return text, nil
}

// extractJSON returns the text between the first { and the last }. Models
// often wrap the object in prose or a code fence.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", errors.New("no JSON object found in response")
	}
	out := s[start : end+1]
	if !json.Valid([]byte(out)) {
		return "", errors.New("response does not contain valid JSON")
	}
	return out, nil
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
