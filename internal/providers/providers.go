// Package providers talks to the upstream AI APIs: key validation during
// setup, per-model connectivity tests, and query cost calculation.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/askerp/askerp-server/pkg/api"
)

// Known provider names. Custom endpoints speak the OpenAI wire format.
const (
	ProviderAnthropic = "Anthropic"
	ProviderGoogle    = "Google"
	ProviderOpenAI    = "OpenAI"
	ProviderCustom    = "Custom"
)

// Models used for bare key validation, before any model is configured.
const (
	anthropicProbeModel = "claude-haiku-4-5-20251001"
	googleProbeModel    = "gemini-2.0-flash"
	openaiProbeModel    = "gpt-4o-mini"
)

// DefaultBaseURLs are applied to registry entries saved without an
// explicit endpoint.
var DefaultBaseURLs = map[string]string{
	ProviderAnthropic: "https://api.anthropic.com/v1/messages",
	ProviderGoogle:    "https://generativelanguage.googleapis.com/v1beta/models",
	ProviderOpenAI:    "https://api.openai.com/v1/chat/completions",
}

const defaultAnthropicVersion = "2023-06-01"

// Client issues probe requests against provider APIs. Base URLs are fields
// so tests can point them at a local httptest server.
type Client struct {
	httpClient *http.Client

	AnthropicURL string
	GoogleURL    string
	OpenAIURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		AnthropicURL: DefaultBaseURLs[ProviderAnthropic],
		GoogleURL:    DefaultBaseURLs[ProviderGoogle],
		OpenAIURL:    DefaultBaseURLs[ProviderOpenAI],
	}
}

// ValidateKey probes a provider with a minimal request to check whether an
// API key works. A 429 counts as success: the key is real, the account is
// just throttled. Network failures are reported with actionable messages
// rather than raw errors.
func (c *Client) ValidateKey(ctx context.Context, provider, apiKey string) api.KeyTestResult {
	switch provider {
	case ProviderAnthropic:
		return c.validateAnthropicKey(ctx, apiKey)
	case ProviderGoogle:
		return c.validateGoogleKey(ctx, apiKey)
	case ProviderOpenAI:
		return c.validateOpenAIKey(ctx, apiKey)
	default:
		return api.KeyTestResult{Success: false, Message: fmt.Sprintf("Unknown provider: %s", provider)}
	}
}

func (c *Client) validateAnthropicKey(ctx context.Context, apiKey string) api.KeyTestResult {
	body := map[string]any{
		"model":      anthropicProbeModel,
		"max_tokens": 10,
		"messages":   []map[string]string{{"role": "user", "content": "Hi"}},
	}
	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": defaultAnthropicVersion,
	}

	status, respBody, err := c.post(ctx, c.AnthropicURL, headers, body)
	if err != nil {
		return networkResult("Anthropic", err)
	}

	switch {
	case status == http.StatusOK:
		return api.KeyTestResult{
			Success:  true,
			Message:  "Anthropic API key is valid! Connection successful.",
			Provider: ProviderAnthropic,
		}
	case status == http.StatusUnauthorized:
		return api.KeyTestResult{
			Success: false,
			Message: "Invalid API key. Please check your Anthropic API key and try again.",
		}
	case status == http.StatusTooManyRequests:
		return api.KeyTestResult{
			Success:  true,
			Message:  "API key is valid (rate limited, which is normal for testing).",
			Provider: ProviderAnthropic,
		}
	default:
		return api.KeyTestResult{
			Success: false,
			Message: fmt.Sprintf("Anthropic API returned status %d: %s", status, errorMessage(respBody)),
		}
	}
}

func (c *Client) validateGoogleKey(ctx context.Context, apiKey string) api.KeyTestResult {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.GoogleURL, googleProbeModel, apiKey)
	body := map[string]any{
		"contents":         []map[string]any{{"parts": []map[string]string{{"text": "Hi"}}}},
		"generationConfig": map[string]int{"maxOutputTokens": 10},
	}

	status, respBody, err := c.post(ctx, url, nil, body)
	if err != nil {
		return networkResult("Google", err)
	}

	switch status {
	case http.StatusOK:
		return api.KeyTestResult{
			Success:  true,
			Message:  "Google Gemini API key is valid! Connection successful.",
			Provider: ProviderGoogle,
		}
	case http.StatusBadRequest:
		msg := errorMessage(respBody)
		if strings.Contains(strings.ToUpper(msg), "API_KEY_INVALID") || strings.Contains(msg, "API key") {
			return api.KeyTestResult{Success: false, Message: "Invalid Google API key. Please check and try again."}
		}
		return api.KeyTestResult{Success: false, Message: "Google API error: " + truncate(msg, 200)}
	case http.StatusForbidden:
		return api.KeyTestResult{
			Success: false,
			Message: "API key doesn't have access to Gemini. Enable the Generative Language API in Google Cloud Console.",
		}
	default:
		return api.KeyTestResult{Success: false, Message: fmt.Sprintf("Google API returned status %d.", status)}
	}
}

func (c *Client) validateOpenAIKey(ctx context.Context, apiKey string) api.KeyTestResult {
	body := map[string]any{
		"model":      openaiProbeModel,
		"messages":   []map[string]string{{"role": "user", "content": "Hi"}},
		"max_tokens": 10,
	}
	headers := map[string]string{"Authorization": "Bearer " + apiKey}

	status, respBody, err := c.post(ctx, c.OpenAIURL, headers, body)
	if err != nil {
		return networkResult("OpenAI", err)
	}

	switch status {
	case http.StatusOK:
		return api.KeyTestResult{
			Success:  true,
			Message:  "OpenAI API key is valid! Connection successful.",
			Provider: ProviderOpenAI,
		}
	case http.StatusUnauthorized:
		return api.KeyTestResult{Success: false, Message: "Invalid OpenAI API key. Please check and try again."}
	case http.StatusTooManyRequests:
		return api.KeyTestResult{
			Success:  true,
			Message:  "API key is valid (rate limited, which is normal for testing).",
			Provider: ProviderOpenAI,
		}
	default:
		return api.KeyTestResult{Success: false, Message: "OpenAI API error: " + truncate(errorMessage(respBody), 200)}
	}
}

// post sends a JSON request and returns (status, body, err). The body is
// capped at 4KB; probes only need the error message, not the payload.
func (c *Client) post(ctx context.Context, url string, headers map[string]string, body any) (int, []byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, respBody, nil
}

// networkResult classifies a transport error into the timeout and
// connection buckets the wizard UI shows.
func networkResult(provider string, err error) api.KeyTestResult {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		return api.KeyTestResult{Success: false, Message: "Connection timed out. Check your network and try again."}
	}
	return api.KeyTestResult{Success: false, Message: fmt.Sprintf("Could not connect to %s. Check your network.", provider)}
}

// errorMessage digs the human-readable message out of a provider error
// body, falling back to the raw text.
func errorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return truncate(strings.TrimSpace(string(body)), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
