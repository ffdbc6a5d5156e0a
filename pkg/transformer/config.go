package transformer

import (
	"fmt"

	"github.com/soundprediction/cartograph/pkg/types"
)

// Config holds the geometric transformer hyperparameters.
type Config struct {
	// EmbeddingDim is the expected input vector length. Zero means infer
	// it from the first input vector at refinement time.
	EmbeddingDim int `json:"embedding_dim" mapstructure:"embedding_dim"`
	// HiddenDim is the working and output dimensionality. Must be
	// divisible by NumHeads.
	HiddenDim int `json:"hidden_dim" mapstructure:"hidden_dim"`
	// NumHeads is the number of attention heads per layer.
	NumHeads int `json:"num_heads" mapstructure:"num_heads"`
	// NumLayers is the number of attention layers.
	NumLayers int `json:"num_layers" mapstructure:"num_layers"`
	// UseLayerNorm re-centers and re-scales each node's vector after
	// every layer to stabilize magnitude.
	UseLayerNorm bool `json:"use_layer_norm" mapstructure:"use_layer_norm"`
	// Seed drives the deterministic weight initialization.
	Seed int64 `json:"seed" mapstructure:"seed"`
}

// WithDefaults returns a copy of the config with default values applied.
func (c *Config) WithDefaults() *Config {
	if c == nil {
		return &Config{
			HiddenDim:    64,
			NumHeads:     4,
			NumLayers:    2,
			UseLayerNorm: true,
			Seed:         42,
		}
	}
	result := *c
	if result.HiddenDim == 0 {
		result.HiddenDim = 64
	}
	if result.NumHeads == 0 {
		result.NumHeads = 4
	}
	if result.NumLayers == 0 {
		result.NumLayers = 2
	}
	if result.Seed == 0 {
		result.Seed = 42
	}
	return &result
}

// Validate checks the configuration, failing fast on invalid combinations.
func (c *Config) Validate() error {
	if c.EmbeddingDim < 0 {
		return fmt.Errorf("%w: embedding_dim must be non-negative, got %d", types.ErrInvalidConfig, c.EmbeddingDim)
	}
	if c.HiddenDim <= 0 {
		return fmt.Errorf("%w: hidden_dim must be positive, got %d", types.ErrInvalidConfig, c.HiddenDim)
	}
	if c.NumHeads <= 0 {
		return fmt.Errorf("%w: num_heads must be positive, got %d", types.ErrInvalidConfig, c.NumHeads)
	}
	if c.NumLayers <= 0 {
		return fmt.Errorf("%w: num_layers must be positive, got %d", types.ErrInvalidConfig, c.NumLayers)
	}
	if c.HiddenDim%c.NumHeads != 0 {
		return fmt.Errorf("%w: hidden_dim %d not divisible by num_heads %d",
			types.ErrInvalidConfig, c.HiddenDim, c.NumHeads)
	}
	return nil
}
