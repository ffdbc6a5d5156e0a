package cartograph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	root "github.com/soundprediction/cartograph"
	"github.com/soundprediction/cartograph/pkg/config"
	"github.com/soundprediction/cartograph/pkg/embedder"
	"github.com/soundprediction/cartograph/pkg/graph"
	"github.com/soundprediction/cartograph/pkg/logger"
	"github.com/soundprediction/cartograph/pkg/projection"
	"github.com/soundprediction/cartograph/pkg/types"
	"github.com/soundprediction/cartograph/pkg/utils"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Compute a manifold layout for a graph file",
	Long: `Compute a manifold layout for a causal knowledge graph stored as JSON.

The input file holds a graph snapshot:

  {"nodes": [{"id": "...", "label": "..."}], "edges": [{"source": "...", "target": "...", "relation": "causes", "confidence": 0.9}]}

Per-node embeddings are read from --embeddings when given; otherwise node
labels are embedded with the configured embedding provider. Coordinates
are written as JSON to --output, or stdout when omitted.`,
	RunE: runLayout,
}

var (
	layoutInput      string
	layoutEmbeddings string
	layoutOutput     string
	layoutComponents int
	layoutRangeMin   float64
	layoutRangeMax   float64
	layoutEpochs     int
	layoutQuiet      bool
)

func init() {
	rootCmd.AddCommand(layoutCmd)

	layoutCmd.Flags().StringVarP(&layoutInput, "input", "i", "", "Graph JSON file (required)")
	layoutCmd.Flags().StringVarP(&layoutEmbeddings, "embeddings", "e", "", "Embeddings JSON file (node id to vector)")
	layoutCmd.Flags().StringVarP(&layoutOutput, "output", "o", "", "Output file (default stdout)")
	layoutCmd.Flags().IntVar(&layoutComponents, "components", 2, "Output dimensionality (2 or 3)")
	layoutCmd.Flags().Float64Var(&layoutRangeMin, "range-min", -100, "Minimum output coordinate per axis")
	layoutCmd.Flags().Float64Var(&layoutRangeMax, "range-max", 100, "Maximum output coordinate per axis")
	layoutCmd.Flags().IntVar(&layoutEpochs, "epochs", 0, "Projector optimization epochs (0 uses the configured default)")
	layoutCmd.Flags().BoolVarP(&layoutQuiet, "quiet", "q", false, "Suppress progress output")
	layoutCmd.MarkFlagRequired("input")
}

// graphFile mirrors the wire format of the server's graph payload.
type graphFile struct {
	Nodes []*types.Node `json:"nodes"`
	Edges []*types.Edge `json:"edges"`
}

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	var gf graphFile
	if err := readJSONFile(layoutInput, &gf); err != nil {
		return fmt.Errorf("failed to read graph file: %w", err)
	}

	g := graph.New()
	loadResult := graph.Load(g, gf.Nodes, gf.Edges, log)
	for _, skipErr := range loadResult.Skipped {
		log.Warn("skipped graph item", "error", skipErr)
	}
	if loadResult.NodesAdded == 0 {
		return fmt.Errorf("graph file contains no loadable nodes")
	}

	ctx := cmd.Context()

	embeddings, err := resolveEmbeddings(ctx, cfg, gf.Nodes)
	if err != nil {
		return err
	}

	projectorCfg := cfg.Projector
	if cmd.Flags().Changed("components") || projectorCfg.NComponents == 0 {
		projectorCfg.NComponents = layoutComponents
	}
	if layoutEpochs > 0 {
		projectorCfg.NEpochs = layoutEpochs
	}

	carto := root.New(&root.Options{
		Transformer: &cfg.Transformer,
		Projector:   &projectorCfg,
		Logger:      log,
	})

	opts := &root.LayoutOptions{
		Range: [2]float64{layoutRangeMin, layoutRangeMax},
	}
	if !layoutQuiet {
		opts.Progress = func(p projection.Progress) {
			fmt.Fprintf(os.Stderr, "\r%5.1f%% %s", p.Fraction, p.Message)
			if p.Fraction >= 100 {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	result, err := carto.Layout(ctx, g, embeddings, opts)
	if err != nil {
		return fmt.Errorf("layout failed: %w", err)
	}

	return writeResult(result)
}

// resolveEmbeddings loads vectors from the embeddings file, or embeds
// node labels with the configured provider when no file is given.
func resolveEmbeddings(ctx context.Context, cfg *config.Config, nodes []*types.Node) (map[string][]float64, error) {
	if layoutEmbeddings != "" {
		var embeddings map[string][]float64
		if err := readJSONFile(layoutEmbeddings, &embeddings); err != nil {
			return nil, fmt.Errorf("failed to read embeddings file: %w", err)
		}
		return embeddings, nil
	}

	client, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(nodes))
	for i, n := range nodes {
		labels[i] = n.Label
	}

	vectors, err := client.Embed(ctx, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to embed node labels: %w", err)
	}
	if len(vectors) != len(nodes) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d nodes", len(vectors), len(nodes))
	}

	embeddings := make(map[string][]float64, len(nodes))
	for i, n := range nodes {
		embeddings[n.ID] = utils.ToFloat64(vectors[i])
	}
	return embeddings, nil
}

func buildEmbedder(cfg *config.Config) (embedder.Client, error) {
	embedderConfig := &embedder.Config{
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	}

	var client embedder.Client
	switch cfg.Embedding.Provider {
	case "local":
		local, err := embedder.NewEmbedEverythingClient(embedderConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create local embedder: %w", err)
		}
		client = local
	case "openai":
		client = embedder.NewOpenAIClient(embedderConfig)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}

	if cfg.CircuitBreaker.Enabled {
		client = embedder.NewCircuitBreakerClient(client, cfg.CircuitBreaker, "embedding")
	}
	return client, nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeResult(result *root.LayoutResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	if layoutOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(layoutOutput, data, 0644)
}
