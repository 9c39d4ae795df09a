// Package llm holds the Claude model caller. It owns transport concerns
// only: rate limiting, retries, response caching and failure
// classification. Callers receive raw model text and a typed error, never
// provider payloads.
package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrorKind classifies a failed model call so callers can branch without
// inspecting provider payloads.
type ErrorKind string

const (
	// KindQuota means the provider will reject every further call until the
	// quota window resets. Retrying only burns latency.
	KindQuota ErrorKind = "quota_exceeded"
	// KindRetryable covers transient failures worth another attempt.
	KindRetryable ErrorKind = "retryable"
	// KindFatal covers everything a retry cannot fix, like a rejected
	// request or an invalid API key.
	KindFatal ErrorKind = "fatal"
)

// CallError is the typed failure returned by the client.
type CallError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *CallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model call failed (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model call failed (%s): %s", e.Kind, e.Message)
}

func (e *CallError) Unwrap() error { return e.Cause }

// IsQuota reports whether err is a quota-exhaustion failure.
func IsQuota(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Kind == KindQuota
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Kind == KindRetryable
}

// Client provides access to the Claude API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client

	rateLimiter *rate.Limiter

	cache    *Cache
	cacheTTL time.Duration

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration

	metrics *Metrics
	mu      sync.RWMutex
}

// Config for the Claude client.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	RateLimitRPM int // Requests per minute
	CacheTTL     time.Duration
	MaxRetries   int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://api.anthropic.com",
		Model:        "claude-sonnet-4-20250514",
		Timeout:      120 * time.Second,
		RateLimitRPM: 50,
		CacheTTL:     24 * time.Hour,
		MaxRetries:   2,
	}
}

// Metrics tracks API usage
type Metrics struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	QuotaFailures   int64
	TotalTokensIn   int64
	TotalTokensOut  int64
	TotalCost       float64
	TotalLatencyMs  int64
	CacheHits       int64
	CacheMisses     int64
}

// Cache for model responses.
type Cache struct {
	data map[string]cacheEntry
	mu   sync.RWMutex
}

type cacheEntry struct {
	response  []byte
	expiresAt time.Time
}

// NewCache creates a new cache
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves from cache
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.response, true
}

// Set stores in cache
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		response:  value,
		expiresAt: time.Now().Add(ttl),
	}
}

// NewClient creates a new Claude API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	// Merge with defaults
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.RateLimitRPM == 0 {
		cfg.RateLimitRPM = DefaultConfig().RateLimitRPM
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}

	// Create rate limiter (tokens per second = RPM / 60)
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPM)/60.0), 1)

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
		cache:       NewCache(),
		cacheTTL:    cfg.CacheTTL,
		maxRetries:  cfg.MaxRetries,
		baseDelay:   time.Second,
		maxDelay:    8 * time.Second,
		metrics:     &Metrics{},
	}, nil
}

// Request represents a Claude API request
type Request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Message represents a conversation message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents a Claude API response
type Response struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        Usage          `json:"usage"`
}

// ContentBlock represents a content block in the response
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Usage contains token usage information
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a completion request to Claude and retries transient
// failures with capped exponential backoff. Quota failures return
// immediately with KindQuota so the caller can switch to its fallback path
// without burning the retry budget.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, *Usage, error) {
	atomic.AddInt64(&c.metrics.TotalRequests, 1)

	cacheKey := c.cacheKey(systemPrompt, userPrompt)
	if cached, ok := c.cache.Get(cacheKey); ok {
		atomic.AddInt64(&c.metrics.CacheHits, 1)
		return string(cached), nil, nil
	}
	atomic.AddInt64(&c.metrics.CacheMisses, 1)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
			select {
			case <-ctx.Done():
				return "", nil, &CallError{Kind: KindFatal, Message: "canceled during retry backoff", Cause: ctx.Err()}
			case <-time.After(delay):
			}
		}

		text, usage, err := c.complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			c.cache.Set(cacheKey, []byte(text), c.cacheTTL)
			return text, usage, nil
		}
		lastErr = err

		if IsQuota(err) {
			atomic.AddInt64(&c.metrics.QuotaFailures, 1)
			return "", usage, err
		}
		if !IsRetryable(err) {
			return "", usage, err
		}
	}

	return "", nil, lastErr
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, *Usage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
		return "", nil, &CallError{Kind: KindFatal, Message: "rate limiter wait", Cause: err}
	}

	start := time.Now()

	req := Request{
		Model:     c.model,
		MaxTokens: 8192,
		System:    systemPrompt,
		Messages: []Message{
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3, // Lower temperature for more deterministic output
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
		return "", nil, err
	}

	atomic.AddInt64(&c.metrics.SuccessRequests, 1)
	atomic.AddInt64(&c.metrics.TotalTokensIn, int64(resp.Usage.InputTokens))
	atomic.AddInt64(&c.metrics.TotalTokensOut, int64(resp.Usage.OutputTokens))
	atomic.AddInt64(&c.metrics.TotalLatencyMs, time.Since(start).Milliseconds())

	c.mu.Lock()
	c.metrics.TotalCost += c.calculateCost(resp.Usage)
	c.mu.Unlock()

	if len(resp.Content) == 0 {
		return "", &resp.Usage, &CallError{Kind: KindRetryable, Message: "empty response"}
	}

	return resp.Content[0].Text, &resp.Usage, nil
}

// doRequest performs the HTTP request
func (c *Client) doRequest(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &CallError{Kind: KindFatal, Message: "marshaling request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &CallError{Kind: KindFatal, Message: "creating request", Cause: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &CallError{Kind: KindRetryable, Message: "sending request", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CallError{Kind: KindRetryable, Message: "reading response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, respBody)
	}

	var apiResp Response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, &CallError{Kind: KindRetryable, Message: "parsing response", Cause: err}
	}

	return &apiResp, nil
}

// classifyAPIError maps a non-200 provider response onto an ErrorKind.
// Anthropic reports both burst rate limiting and exhausted quota as 429;
// only the latter should stop us from retrying.
func classifyAPIError(status int, body []byte) *CallError {
	var payload apiError
	_ = json.Unmarshal(body, &payload)
	message := payload.Error.Message
	if message == "" {
		message = string(body)
	}

	ce := &CallError{StatusCode: status, Message: message}
	lower := strings.ToLower(message + " " + payload.Error.Type)

	switch {
	case status == http.StatusTooManyRequests &&
		(strings.Contains(lower, "quota") || strings.Contains(lower, "credit") || strings.Contains(lower, "billing")):
		ce.Kind = KindQuota
	case status == http.StatusTooManyRequests, status >= 500:
		ce.Kind = KindRetryable
	default:
		ce.Kind = KindFatal
	}
	return ce
}

// calculateCost calculates the cost of a request
func (c *Client) calculateCost(usage Usage) float64 {
	// Claude Sonnet pricing: $3 per million input tokens, $15 per million
	// output tokens.
	inputCost := float64(usage.InputTokens) / 1000000 * 3.00
	outputCost := float64(usage.OutputTokens) / 1000000 * 15.00
	return inputCost + outputCost
}

// cacheKey hashes both prompts so distinct audits never collide.
func (c *Client) cacheKey(systemPrompt, userPrompt string) string {
	sum := sha256.Sum256([]byte(systemPrompt + "|" + userPrompt))
	return c.model + "_" + hex.EncodeToString(sum[:16])
}

// GetMetrics returns current metrics
func (c *Client) GetMetrics() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Metrics{
		TotalRequests:   atomic.LoadInt64(&c.metrics.TotalRequests),
		SuccessRequests: atomic.LoadInt64(&c.metrics.SuccessRequests),
		FailedRequests:  atomic.LoadInt64(&c.metrics.FailedRequests),
		QuotaFailures:   atomic.LoadInt64(&c.metrics.QuotaFailures),
		TotalTokensIn:   atomic.LoadInt64(&c.metrics.TotalTokensIn),
		TotalTokensOut:  atomic.LoadInt64(&c.metrics.TotalTokensOut),
		TotalCost:       c.metrics.TotalCost,
		TotalLatencyMs:  atomic.LoadInt64(&c.metrics.TotalLatencyMs),
		CacheHits:       atomic.LoadInt64(&c.metrics.CacheHits),
		CacheMisses:     atomic.LoadInt64(&c.metrics.CacheMisses),
	}
}

// GetModel returns the model being used
func (c *Client) GetModel() string {
	return c.model
}
