package providers

import (
	"math"

	"github.com/askerp/askerp-server/internal/store/model"
)

// Usage is the token breakdown a provider reports for one query.
// Cache read and creation tokens are subsets of the input count.
type Usage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
}

// Cost is the priced breakdown of one query, in the model's currency.
type Cost struct {
	Input  float64 `json:"cost_input"`
	Output float64 `json:"cost_output"`
	Total  float64 `json:"cost_total"`
}

// CalculateCost prices a query against a model's per-million rates.
// Input splits three ways: regular tokens at the standard rate, cache reads
// at the discounted rate, cache creation at the premium rate.
func CalculateCost(m *model.Model, u Usage) Cost {
	input := max64(u.InputTokens, 0)
	output := max64(u.OutputTokens, 0)
	cacheRead := max64(u.CacheReadTokens, 0)
	cacheWrite := max64(u.CacheCreationTokens, 0)

	regular := input - cacheRead - cacheWrite
	if regular < 0 {
		regular = 0
	}

	costInput := perMillion(regular, m.InputCostPerMillion) +
		perMillion(cacheRead, m.CacheReadCostPerM) +
		perMillion(cacheWrite, m.CacheWriteCostPerM)
	costOutput := perMillion(output, m.OutputCostPerMillion)

	return Cost{
		Input:  round6(costInput),
		Output: round6(costOutput),
		Total:  round6(costInput + costOutput),
	}
}

func perMillion(tokens int64, rate float64) float64 {
	return float64(tokens) / 1_000_000 * rate
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
