package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/pkg/api"
)

// TestConnection sends a minimal "Say OK" request to a configured model and
// reports whether it answered, with round-trip latency. The caller persists
// the outcome on the registry entry.
func (c *Client) TestConnection(ctx context.Context, m *model.Model) api.ConnectionTestResult {
	if m.APIKey == "" {
		return api.ConnectionTestResult{Success: false, Message: "API key is empty"}
	}

	start := time.Now()
	var status int
	var body []byte
	var err error

	switch m.Provider {
	case ProviderAnthropic:
		status, body, err = c.probeAnthropic(ctx, m)
	case ProviderGoogle:
		status, body, err = c.probeGoogle(ctx, m)
	case ProviderOpenAI, ProviderCustom:
		status, body, err = c.probeOpenAI(ctx, m)
	default:
		return api.ConnectionTestResult{Success: false, Message: "Unknown provider: " + m.Provider}
	}

	latency := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		res := networkResult(m.Provider, err)
		return api.ConnectionTestResult{Success: false, Message: res.Message, LatencyMS: latency}
	}

	if status == http.StatusOK {
		return api.ConnectionTestResult{
			Success:   true,
			Message:   fmt.Sprintf("Model %s responded.", m.ModelID),
			LatencyMS: latency,
		}
	}
	return api.ConnectionTestResult{
		Success:   false,
		Message:   fmt.Sprintf("HTTP %d: %s", status, truncate(errorMessage(body), 300)),
		LatencyMS: latency,
	}
}

func (c *Client) probeAnthropic(ctx context.Context, m *model.Model) (int, []byte, error) {
	url := m.APIBaseURL
	if url == "" {
		url = c.AnthropicURL
	}
	version := m.APIVersion
	if version == "" {
		version = defaultAnthropicVersion
	}
	return c.post(ctx, url, map[string]string{
		"x-api-key":         m.APIKey,
		"anthropic-version": version,
	}, map[string]any{
		"model":      m.ModelID,
		"max_tokens": 10,
		"messages":   []map[string]string{{"role": "user", "content": "Say OK"}},
	})
}

func (c *Client) probeGoogle(ctx context.Context, m *model.Model) (int, []byte, error) {
	base := m.APIBaseURL
	if base == "" {
		base = c.GoogleURL
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", base, m.ModelID, m.APIKey)
	return c.post(ctx, url, nil, map[string]any{
		"contents":         []map[string]any{{"parts": []map[string]string{{"text": "Say OK"}}}},
		"generationConfig": map[string]int{"maxOutputTokens": 10},
	})
}

func (c *Client) probeOpenAI(ctx context.Context, m *model.Model) (int, []byte, error) {
	url := m.APIBaseURL
	if url == "" {
		url = c.OpenAIURL
	}
	return c.post(ctx, url, map[string]string{
		"Authorization": "Bearer " + m.APIKey,
	}, map[string]any{
		"model":      m.ModelID,
		"messages":   []map[string]string{{"role": "user", "content": "Say OK"}},
		"max_tokens": 10,
	})
}
