package projection

import (
	"fmt"

	"github.com/soundprediction/cartograph/pkg/types"
)

// Metric names recognized by the projector.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

// Config holds the manifold projector hyperparameters.
type Config struct {
	// NComponents is the target dimensionality, 2 or 3.
	NComponents int `json:"n_components" mapstructure:"n_components"`
	// NNeighbors is the size of the local neighborhood considered per point.
	NNeighbors int `json:"n_neighbors" mapstructure:"n_neighbors"`
	// MinDist is the minimum desired distance between close projected points.
	MinDist float64 `json:"min_dist" mapstructure:"min_dist"`
	// Spread is the overall scale of the embedded layout.
	Spread float64 `json:"spread" mapstructure:"spread"`
	// Metric selects the distance function, euclidean or cosine.
	Metric string `json:"metric" mapstructure:"metric"`

	// NEpochs is the number of optimization epochs.
	NEpochs int `json:"n_epochs" mapstructure:"n_epochs"`
	// LearningRate is the initial SGD step size; it decays across epochs.
	LearningRate float64 `json:"learning_rate" mapstructure:"learning_rate"`
	// NegativeSampleRate is the number of repulsive samples per attractive one.
	NegativeSampleRate int `json:"negative_sample_rate" mapstructure:"negative_sample_rate"`
	// Seed drives every random choice for reproducible layouts.
	Seed int64 `json:"seed" mapstructure:"seed"`
}

// WithDefaults returns a copy of the config with default values applied.
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	result := *c
	if result.NComponents == 0 {
		result.NComponents = 2
	}
	if result.NNeighbors == 0 {
		result.NNeighbors = 15
	}
	if result.MinDist == 0 {
		result.MinDist = 0.1
	}
	if result.Spread == 0 {
		result.Spread = 1.0
	}
	if result.Metric == "" {
		result.Metric = MetricEuclidean
	}
	if result.NEpochs == 0 {
		result.NEpochs = 200
	}
	if result.LearningRate == 0 {
		result.LearningRate = 1.0
	}
	if result.NegativeSampleRate == 0 {
		result.NegativeSampleRate = 5
	}
	if result.Seed == 0 {
		result.Seed = 42
	}
	return &result
}

// Validate checks the configuration, failing fast on invalid combinations.
func (c *Config) Validate() error {
	if c.NComponents != 2 && c.NComponents != 3 {
		return fmt.Errorf("%w: n_components must be 2 or 3, got %d", types.ErrInvalidConfig, c.NComponents)
	}
	if c.NNeighbors < 2 {
		return fmt.Errorf("%w: n_neighbors must be at least 2, got %d", types.ErrInvalidConfig, c.NNeighbors)
	}
	if c.MinDist < 0 {
		return fmt.Errorf("%w: min_dist must be non-negative, got %v", types.ErrInvalidConfig, c.MinDist)
	}
	if c.Spread <= 0 {
		return fmt.Errorf("%w: spread must be positive, got %v", types.ErrInvalidConfig, c.Spread)
	}
	if c.Metric != MetricEuclidean && c.Metric != MetricCosine {
		return fmt.Errorf("%w: unknown metric %q", types.ErrInvalidConfig, c.Metric)
	}
	if c.NEpochs < 1 {
		return fmt.Errorf("%w: n_epochs must be positive, got %d", types.ErrInvalidConfig, c.NEpochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate must be positive, got %v", types.ErrInvalidConfig, c.LearningRate)
	}
	if c.NegativeSampleRate < 1 {
		return fmt.Errorf("%w: negative_sample_rate must be positive, got %d", types.ErrInvalidConfig, c.NegativeSampleRate)
	}
	return nil
}
