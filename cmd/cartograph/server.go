package cartograph

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	root "github.com/soundprediction/cartograph"
	"github.com/soundprediction/cartograph/pkg/config"
	"github.com/soundprediction/cartograph/pkg/logger"
	"github.com/soundprediction/cartograph/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the cartograph HTTP server",
	Long: `Start the cartograph HTTP server to provide REST API access to the
layout pipeline.

The server provides endpoints for:
- Computing graph and complex statistics
- Refining node embeddings with the geometric transformer
- Producing full manifold layouts
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")

	// Transformer flags
	serverCmd.Flags().Int("hidden-dim", 64, "Transformer hidden dimension")
	serverCmd.Flags().Int("num-heads", 4, "Transformer attention heads")
	serverCmd.Flags().Int("num-layers", 2, "Transformer layers")

	// Projector flags
	serverCmd.Flags().Int("n-components", 2, "Output dimensionality (2 or 3)")
	serverCmd.Flags().Int("n-neighbors", 15, "Neighborhood size for the projector")
	serverCmd.Flags().Int("n-epochs", 200, "Projector optimization epochs")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry error records")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	carto := root.New(&root.Options{
		Transformer: &cfg.Transformer,
		Projector:   &cfg.Projector,
		Logger:      log,
	})

	srv := server.New(cfg, carto, log)
	srv.Setup()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Info("server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	// Transformer flags
	if cmd.Flags().Changed("hidden-dim") {
		cfg.Transformer.HiddenDim, _ = cmd.Flags().GetInt("hidden-dim")
	}
	if cmd.Flags().Changed("num-heads") {
		cfg.Transformer.NumHeads, _ = cmd.Flags().GetInt("num-heads")
	}
	if cmd.Flags().Changed("num-layers") {
		cfg.Transformer.NumLayers, _ = cmd.Flags().GetInt("num-layers")
	}

	// Projector flags
	if cmd.Flags().Changed("n-components") {
		cfg.Projector.NComponents, _ = cmd.Flags().GetInt("n-components")
	}
	if cmd.Flags().Changed("n-neighbors") {
		cfg.Projector.NNeighbors, _ = cmd.Flags().GetInt("n-neighbors")
	}
	if cmd.Flags().Changed("n-epochs") {
		cfg.Projector.NEpochs, _ = cmd.Flags().GetInt("n-epochs")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if err := cfg.Transformer.WithDefaults().Validate(); err != nil {
		return err
	}
	return cfg.Projector.WithDefaults().Validate()
}
