// Package llm provides the Gemini chat completion client used for intent
// identification.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
)

// ErrRateLimited is returned when the Gemini API rejects a request with
// HTTP 429. Callers fall back to keyword-based routing instead of failing
// the user request.
var ErrRateLimited = errors.New("llm rate limited")

// Chat roles accepted by Generate.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of model input.
type Message struct {
	Role    string
	Content string
}

// Client calls the Gemini generateContent REST API.
type Client struct {
	config     config.LLMConfig
	httpClient *http.Client
}

// NewClient creates a Gemini client from the resolved LLM configuration.
func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Request and response shapes for the generateContent endpoint.

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate sends the conversation to Gemini and returns the concatenated
// text of the first candidate.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	apiKey := c.config.APIKey()
	if apiKey == "" {
		return "", fmt.Errorf("Gemini API key is not set (expected in %s)", c.config.APIKeyEnv)
	}

	req := &geminiRequest{
		Contents:         convertMessages(messages),
		GenerationConfig: c.generationConfig(),
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimSuffix(c.config.APIBase, "/"), c.config.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// The key travels in a header so transport errors, which embed the
	// request URL, never expose it.
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("Gemini API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("Gemini API quota exceeded: %w", ErrRateLimited)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("Gemini API error (HTTP %d): %s", resp.StatusCode, truncate(respBody))
		}
		return "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	if geminiResp.Error != nil {
		if geminiResp.Error.Code == http.StatusTooManyRequests || geminiResp.Error.Status == "RESOURCE_EXHAUSTED" {
			return "", fmt.Errorf("Gemini API quota exceeded: %w", ErrRateLimited)
		}
		return "", fmt.Errorf("Gemini API error: %s", geminiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (HTTP %d): %s", resp.StatusCode, truncate(respBody))
	}
	if len(geminiResp.Candidates) == 0 {
		return "", errors.New("no candidates in Gemini response")
	}

	var text strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

func (c *Client) generationConfig() *geminiGenerationConfig {
	cfg := &geminiGenerationConfig{
		MaxOutputTokens: c.config.MaxOutputTokens,
	}
	// Zero means "use the model default", so it is omitted rather than
	// sent literally.
	if c.config.Temperature > 0 {
		temp := c.config.Temperature
		cfg.Temperature = &temp
	}
	return cfg
}

// convertMessages maps chat roles onto Gemini's content roles. Gemini has
// no system role; system turns are sent as user content.
func convertMessages(messages []Message) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		role := msg.Role
		switch role {
		case RoleAssistant:
			role = "model"
		case RoleSystem:
			role = "user"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	return contents
}

const maxErrorBody = 2048

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
