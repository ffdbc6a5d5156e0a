package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/cartograph/pkg/config"
)

// mockClient is a deterministic in-memory Client for tests.
type mockClient struct {
	dims     int
	failWith error
	calls    int
}

func (m *mockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dims)
		for j := range vec {
			vec[j] = float32(len(text)+i+j) / 10
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockClient) Dimensions() int { return m.dims }

func TestCircuitBreakerPassesThrough(t *testing.T) {
	mock := &mockClient{dims: 4}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{
		MaxRequests:      1,
		Interval:         60,
		Timeout:          30,
		ReadyToTripRatio: 0.6,
	}, "test")

	vecs, err := cb.Embed(context.Background(), []string{"smoking", "cancer"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 4)
	assert.Equal(t, 4, cb.Dimensions())
}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	mock := &mockClient{dims: 4, failWith: errors.New("provider down")}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{
		MaxRequests:      1,
		Interval:         60,
		Timeout:          30,
		ReadyToTripRatio: 0.5,
	}, "test")

	for i := 0; i < 5; i++ {
		_, err := cb.Embed(context.Background(), []string{"x"})
		require.Error(t, err)
	}

	// The breaker should now be open and short-circuit without reaching
	// the underlying client.
	callsBefore := mock.calls
	_, err := cb.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, callsBefore, mock.calls, "open breaker still called the provider")
}

func TestOpenAIClientDefaults(t *testing.T) {
	c := NewOpenAIClient(&Config{BaseURL: "http://localhost:8000/v1", Dimensions: 384})
	assert.NotNil(t, c)
	assert.Equal(t, 384, c.Dimensions())
	assert.NotEmpty(t, c.config.Model)
}
