package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/casetrace/casetrace/internal/cache"
)

// NarrativeUnavailable is the placeholder rendered when the summarizer
// fails. Reports always complete with best-effort content.
const NarrativeUnavailable = "Narrative analysis unavailable."

// ServiceError indicates the external narrative summarizer is unavailable
// or returned an unusable response
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("narrative service: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Summarizer produces narrative text from a prompt. Implementations are
// treated as unreliable; callers degrade to NarrativeUnavailable.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummarizerConfig holds the connection settings of the chat-completion
// endpoint backing the summarizer
type SummarizerConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPSummarizer calls an OpenAI-style chat-completions endpoint
type HTTPSummarizer struct {
	config *SummarizerConfig
	client *http.Client
}

// NewHTTPSummarizer creates a summarizer client, defaulting the timeout
func NewHTTPSummarizer(config *SummarizerConfig) *HTTPSummarizer {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &HTTPSummarizer{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize sends the prompt to the chat endpoint and returns the first
// choice's text
func (s *HTTPSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       s.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.5,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", &ServiceError{Op: "encode request", Err: err}
	}

	url := strings.TrimRight(s.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &ServiceError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &ServiceError{Op: "call", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ServiceError{Op: "call", Err: fmt.Errorf("status %d: %s", resp.StatusCode, data)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ServiceError{Op: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", &ServiceError{Op: "decode response", Err: fmt.Errorf("empty completion")}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// CachedSummarizer caches completed narratives by prompt hash
type CachedSummarizer struct {
	inner Summarizer
	cache *cache.Cache
}

// NewCachedSummarizer wraps a summarizer with the narrative cache
func NewCachedSummarizer(inner Summarizer, c *cache.Cache) *CachedSummarizer {
	return &CachedSummarizer{inner: inner, cache: c}
}

// Summarize serves from cache when the identical prompt was answered
// before; failures are never cached.
func (s *CachedSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	key := cache.PromptKey(prompt)
	if text, ok := s.cache.GetNarrative(ctx, key); ok {
		return text, nil
	}

	text, err := s.inner.Summarize(ctx, prompt)
	if err != nil {
		return "", err
	}

	_ = s.cache.SetNarrative(ctx, key, text)
	return text, nil
}
