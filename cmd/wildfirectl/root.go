package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/wildfire-watch-service/internal/app"
	"github.com/couchcryptid/wildfire-watch-service/internal/config"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
)

var verbose bool

// metrics are registered once per process; the CLI does not serve them.
var metrics = sync.OnceValue(observability.NewMetrics)

// rootCmd is the wildfirectl entry point.
var rootCmd = &cobra.Command{
	Use:   "wildfirectl",
	Short: "Operate the wildfire watch backend",
	Long: `wildfirectl runs wildfire watch operations directly against the configured
store, using the same environment variables as the server (STORE_DRIVER,
ORACLE_DRIVER, KAFKA_BROKERS, MAPBOX_TOKEN, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.AddCommand(entitiesCmd, analyzeCmd, predictCmd, summaryCmd)
}

// withApp loads config, wires the service and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg, cliLogger(cmd.ErrOrStderr()), metrics())
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // failures are logged by Close

	return fn(cmd.Context(), a)
}

// cliLogger writes to stderr so stdout carries only command output.
func cliLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
