package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client представляет клиент для работы с LLM API
type Client struct {
	baseURL    string
	apiKey     string
	defaults   Options
	httpClient *http.Client
	logger     *zap.Logger

	mu           sync.Mutex
	requestCount int64
	successCount int64
	errorCount   int64
	totalUsage   Usage
}

// Config конфигурация для LLM клиента
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Request структура запроса к LLM
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// Message сообщение в чате
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response ответ от LLM
type Response struct {
	Choices []Choice      `json:"choices"`
	Usage   responseUsage `json:"usage"`
}

// Choice выбор из ответа
type Choice struct {
	Message Message `json:"message"`
}

type responseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

const systemPrompt = "You are a music curation assistant for a Spotify playlist " +
	"generator. Always respond with valid JSON when the user asks for JSON. " +
	"Return ONLY the requested data without explanations or markdown commentary."

// NewClient создает новый LLM клиент
func NewClient(config Config, logger *zap.Logger) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  config.BaseURL,
		apiKey:   config.APIKey,
		defaults: Options{Model: config.Model, Temperature: config.Temperature, MaxTokens: config.MaxTokens},
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Enabled сообщает, настроен ли клиент для реальных запросов
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Dispatch отправляет промпт к LLM и возвращает сырой текст ответа.
// При отсутствии API-ключа возвращает пустой ответ без ошибки: фичи LLM
// считаются выключенными, пайплайн работает на запасных значениях.
func (c *Client) Dispatch(ctx context.Context, prompt string, opts Options) (Completion, error) {
	if !c.Enabled() {
		c.logger.Warn("LLM API key is not configured; returning empty response")
		return Completion{}, nil
	}

	resolved := c.resolveOptions(opts)

	request := Request{
		Model: resolved.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: resolved.Temperature,
		MaxTokens:   resolved.MaxTokens,
		Stream:      false,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.incrementRequest()
	c.logger.Debug("Sending request to LLM",
		zap.String("model", resolved.Model),
		zap.Int("prompt_length", len(prompt)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.incrementError()
		return Completion{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.incrementError()
		return Completion{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.incrementError()
		return Completion{}, fmt.Errorf("LLM API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response Response
	if err := json.Unmarshal(body, &response); err != nil {
		c.incrementError()
		return Completion{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(response.Choices) == 0 {
		c.incrementError()
		return Completion{}, fmt.Errorf("no choices in LLM response")
	}

	usage := Usage{
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
		TotalTokens:      response.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 && (usage.PromptTokens > 0 || usage.CompletionTokens > 0) {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	c.recordSuccess(usage)

	c.logger.Debug("Received response from LLM",
		zap.Int("response_length", len(response.Choices[0].Message.Content)),
		zap.Int("total_tokens", usage.TotalTokens))

	return Completion{
		Text:  response.Choices[0].Message.Content,
		Usage: usage,
	}, nil
}

// resolveOptions накладывает значения по умолчанию на параметры запроса
func (c *Client) resolveOptions(opts Options) Options {
	resolved := opts
	if resolved.Model == "" {
		resolved.Model = c.defaults.Model
	}
	if resolved.Temperature == 0 {
		resolved.Temperature = c.defaults.Temperature
	}
	if resolved.MaxTokens == 0 {
		resolved.MaxTokens = c.defaults.MaxTokens
	}
	return resolved
}

// GetMetrics возвращает метрики LLM клиента
func (c *Client) GetMetrics() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	return map[string]interface{}{
		"total_requests":      c.requestCount,
		"successful_requests": c.successCount,
		"failed_requests":     c.errorCount,
		"total_tokens":        c.totalUsage.TotalTokens,
	}
}

func (c *Client) incrementRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount++
}

func (c *Client) recordSuccess(usage Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successCount++
	c.totalUsage.Add(usage)
}

func (c *Client) incrementError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCount++
}
