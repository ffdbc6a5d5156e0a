package projection

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/cartograph/pkg/types"
)

// clusteredVectors generates two well-separated gaussian clusters.
func clusteredVectors(n, dim int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, n)
	for i := range out {
		center := 0.0
		if i >= n/2 {
			center = 10.0
		}
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = center + rng.NormFloat64()*0.5
		}
		out[i] = vec
	}
	return out
}

func TestProjectShape(t *testing.T) {
	p, err := NewProjector(&Config{NComponents: 3, NNeighbors: 4, NEpochs: 50})
	require.NoError(t, err)

	vectors := clusteredVectors(12, 8, 1)
	coords, err := p.Project(context.Background(), vectors, nil)
	require.NoError(t, err)

	require.Len(t, coords, 12)
	for i, c := range coords {
		assert.Len(t, c, 3, "point %d", i)
		for _, v := range c {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "point %d has non-finite coordinate", i)
		}
	}
}

func TestProjectDeterministic(t *testing.T) {
	vectors := clusteredVectors(10, 6, 2)
	cfg := &Config{NComponents: 2, NNeighbors: 3, NEpochs: 80, Seed: 7}

	run := func() [][]float64 {
		p, err := NewProjector(cfg)
		require.NoError(t, err)
		coords, err := p.Project(context.Background(), vectors, nil)
		require.NoError(t, err)
		return coords
	}

	first, second := run(), run()
	for i := range first {
		for d := range first[i] {
			assert.InDelta(t, first[i][d], second[i][d], 1e-9,
				"coordinates differ at point %d axis %d", i, d)
		}
	}
}

func TestProjectValidation(t *testing.T) {
	p, err := NewProjector(nil)
	require.NoError(t, err)

	t.Run("too few points", func(t *testing.T) {
		_, err := p.Project(context.Background(), [][]float64{{1, 2}}, nil)
		assert.ErrorIs(t, err, types.ErrTooFewPoints)
	})

	t.Run("inconsistent lengths", func(t *testing.T) {
		_, err := p.Project(context.Background(), [][]float64{{1, 2}, {1, 2, 3}}, nil)
		assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	})

	t.Run("non-finite values", func(t *testing.T) {
		_, err := p.Project(context.Background(), [][]float64{{1, 2}, {math.NaN(), 3}}, nil)
		assert.ErrorIs(t, err, types.ErrNonFiniteValue)
	})

	t.Run("validation happens before any epoch", func(t *testing.T) {
		called := false
		_, err := p.Project(context.Background(), [][]float64{{math.Inf(1)}},
			func(Progress) { called = true })
		assert.Error(t, err)
		assert.False(t, called, "progress reported before validation failure")
	})
}

func TestProjectConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"bad components", Config{NComponents: 4}},
		{"bad neighbors", Config{NNeighbors: 1, NComponents: 2}},
		{"bad metric", Config{NComponents: 2, Metric: "manhattan"}},
		{"negative min dist", Config{NComponents: 2, MinDist: -0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProjector(&tt.config)
			assert.ErrorIs(t, err, types.ErrInvalidConfig)
		})
	}
}

func TestProjectProgressMonotonic(t *testing.T) {
	p, err := NewProjector(&Config{NComponents: 2, NNeighbors: 4, NEpochs: 100})
	require.NoError(t, err)

	var fractions []float64
	_, err = p.Project(context.Background(), clusteredVectors(15, 5, 3), func(pr Progress) {
		require.GreaterOrEqual(t, pr.Fraction, 0.0)
		require.LessOrEqual(t, pr.Fraction, 100.0)
		require.NotEmpty(t, pr.Message)
		fractions = append(fractions, pr.Fraction)
	})
	require.NoError(t, err)
	require.NotEmpty(t, fractions)

	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1], "progress went backwards")
	}
	assert.Equal(t, 100.0, fractions[len(fractions)-1])
}

func TestProjectCancellationReturnsCompleteLayout(t *testing.T) {
	p, err := NewProjector(&Config{NComponents: 2, NNeighbors: 4, NEpochs: 5000})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	vectors := clusteredVectors(20, 6, 4)

	coords, err := p.Project(ctx, vectors, func(pr Progress) {
		// Cancel as soon as optimization starts reporting.
		if pr.Fraction >= 40 {
			cancel()
		}
	})
	require.NoError(t, err, "cancellation must not surface as an error")
	require.Len(t, coords, len(vectors), "cancelled projection must still cover every point")
	for i, c := range coords {
		require.Len(t, c, 2, "point %d", i)
	}
}

func TestProjectCosineMetric(t *testing.T) {
	p, err := NewProjector(&Config{NComponents: 2, NNeighbors: 3, Metric: MetricCosine, NEpochs: 40})
	require.NoError(t, err)

	coords, err := p.Project(context.Background(), clusteredVectors(8, 4, 5), nil)
	require.NoError(t, err)
	require.Len(t, coords, 8)
}

func TestProjectSeparatesClusters(t *testing.T) {
	// Two tight, distant clusters should stay separated in the layout.
	p, err := NewProjector(&Config{NComponents: 2, NNeighbors: 4, NEpochs: 200, Seed: 11})
	require.NoError(t, err)

	n := 20
	coords, err := p.Project(context.Background(), clusteredVectors(n, 8, 6), nil)
	require.NoError(t, err)

	centroid := func(points [][]float64) []float64 {
		c := make([]float64, 2)
		for _, p := range points {
			c[0] += p[0]
			c[1] += p[1]
		}
		c[0] /= float64(len(points))
		c[1] /= float64(len(points))
		return c
	}
	a := centroid(coords[:n/2])
	b := centroid(coords[n/2:])
	dist := math.Hypot(a[0]-b[0], a[1]-b[1])

	var spread float64
	for i, c := range coords {
		ref := a
		if i >= n/2 {
			ref = b
		}
		spread += math.Hypot(c[0]-ref[0], c[1]-ref[1])
	}
	spread /= float64(n)

	assert.Greater(t, dist, spread, "cluster centroids closer than average within-cluster spread")
}
