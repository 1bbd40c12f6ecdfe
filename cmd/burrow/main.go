package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/burrow-dns/burrow/pkg/api"
	"github.com/burrow-dns/burrow/pkg/arena"
	"github.com/burrow-dns/burrow/pkg/config"
	"github.com/burrow-dns/burrow/pkg/housekeeper"
	"github.com/burrow-dns/burrow/pkg/log"
	"github.com/burrow-dns/burrow/pkg/overtime"
	"github.com/burrow-dns/burrow/pkg/ratelimit"
	"github.com/burrow-dns/burrow/pkg/resource"
	"github.com/burrow-dns/burrow/pkg/retention"
	"github.com/burrow-dns/burrow/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - DNS query telemetry retention engine",
	Long: `Burrow keeps a rolling in-memory window of DNS query telemetry,
garbage-collects expired records on a fixed cadence, and archives
history to an embedded database.

It watches its own resource footprint and rate-limits noisy clients.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Burrow version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telemetry daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		snap := cfg.Snapshot()

		log.Init(log.Config{
			Level:      log.Level(snap.Log.Level),
			JSONOutput: snap.Log.JSON,
		})
		logger := log.WithComponent("main")
		logger.Info().Str("version", Version).Msg("Starting burrow")

		// Storage tier
		store, err := storage.Open(snap.Files.Database)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer store.Close()

		// In-memory core
		a := arena.New(snap.Arena.MaxQueries)
		buckets := overtime.New(snap.Arena.Slots, snap.GC.Interval, time.Now().Unix())
		engine := retention.New(a, buckets, store, cfg)
		reconciler := ratelimit.New(a, cfg)
		monitor := resource.New(cfg, store)

		// Config hot reload
		var watcher *config.Watcher
		if configPath != "" {
			watcher, err = config.Watch(configPath)
			if err != nil {
				logger.Warn().Err(err).Msg("Config watching unavailable")
			} else {
				defer watcher.Close()
			}
		}

		// Background loops
		keeper := housekeeper.New(a, engine, reconciler, monitor, cfg, watcher)
		keeper.Start()

		syncer := storage.NewSyncer(store, a, engine, cfg)
		syncer.Start()

		apiServer := api.NewServer(a, engine, store, cfg)
		apiServer.Start()

		// Wait for interrupt signal
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")

		// Shutdown: stop the API first so no new mutations arrive, then
		// the loops, then flush remaining records to disk via the syncer
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Stop(ctx); err != nil {
			logger.Error().Err(err).Msg("API shutdown failed")
		}
		keeper.Stop()
		syncer.Stop()

		logger.Info().Msg("Shutdown complete")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		if _, err := config.Load(configPath); err != nil {
			return err
		}
		fmt.Printf("✓ Configuration %s is valid\n", configPath)
		return nil
	},
}

func init() {
	serveCmd.Flags().String("config", "/etc/burrow/burrow.toml", "Path to configuration file")

	configCmd.AddCommand(configCheckCmd)
	configCheckCmd.Flags().String("config", "/etc/burrow/burrow.toml", "Path to configuration file")
}
