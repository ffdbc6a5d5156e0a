package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/cartograph/pkg/utils"
)

func TestComputeKNNCosineMatchesSimilarity(t *testing.T) {
	data := [][]float64{
		{1, 0, 0},
		{2, 0, 0},
		{0, 3, 0},
		{1, 1, 0},
		{0, 0, 0},
	}

	knn, err := computeKNN(context.Background(), data, 3, MetricCosine)
	require.NoError(t, err)

	for i := range data {
		require.Len(t, knn.Indices[i], 3, "row %d", i)
		for j, neighbor := range knn.Indices[i] {
			want := 1 - utils.CosineSimilarity64(data[i], data[neighbor])
			assert.InDelta(t, want, knn.Dists[i][j], 1e-12,
				"row %d neighbor %d", i, neighbor)
		}
	}
}

func TestComputeKNNCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	_, err := computeKNN(ctx, data, 2, MetricEuclidean)
	assert.NoError(t, err, "cancellation must not surface as a neighbor-search error")
}
