package usage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ModelPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// PricingTable maps provider then model to per-1K-token rates. Model IDs
// like "openrouter/openai/gpt-5" split at the first slash: provider
// "openrouter", model "openai/gpt-5".
type PricingTable struct {
	Providers map[string]map[string]ModelPricing
}

func LoadPricing(path string) (*PricingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing file: %w", err)
	}
	var providers map[string]map[string]ModelPricing
	if err := yaml.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("parsing pricing file: %w", err)
	}
	return &PricingTable{Providers: providers}, nil
}

// SplitModelID separates the provider prefix from the model name.
func SplitModelID(id string) (provider, model string) {
	idx := strings.IndexByte(id, '/')
	if idx < 0 {
		return "", id
	}
	return id[:idx], id[idx+1:]
}

// Cost estimates the cost of a token count for a model ID. Unknown
// providers or models cost zero.
func (t *PricingTable) Cost(modelID string, inputTokens, outputTokens int) float64 {
	if t.Providers == nil {
		return 0
	}
	provider, model := SplitModelID(modelID)
	models, ok := t.Providers[provider]
	if !ok {
		return 0
	}
	p, ok := models[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1000.0)*p.Input + (float64(outputTokens)/1000.0)*p.Output
}
