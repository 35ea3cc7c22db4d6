package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/wildfire-watch-service/internal/app"
	"github.com/couchcryptid/wildfire-watch-service/internal/collection"
	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
)

var (
	listSort  string
	listLimit int
)

// entitiesCmd groups entity collection commands.
var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Inspect entity collections",
}

var entitiesListCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "List records of a collection as JSON",
	Long: `List records of a collection as JSON.

Sort by a field with --sort name (ascending) or --sort -name (descending).
--limit 0 returns the default page of 100; a negative limit returns everything.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: domain.CollectionNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			c, err := a.Collections.Get(args[0])
			if err != nil {
				return err
			}
			records, err := c.List(ctx, collection.ListOptions{Sort: listSort, Limit: listLimit})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		})
	},
}

var entitiesNamesCmd = &cobra.Command{
	Use:   "names",
	Short: "Print the collection names",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range domain.CollectionNames {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

// analyzeCmd runs the batch job once.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [zone-id]",
	Short: "Analyze monitored zones",
	Long: `Analyze the 200 most recently created monitored zones and record alerts for
high and extreme risk. With a zone id, analyze only that zone and print it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if len(args) == 1 {
				zone, err := a.Monitor.AnalyzeZone(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), zone)
			}
			res, err := a.Monitor.AnalyzeZones(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict wildfire hotspots for a heat map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			preds, err := a.Monitor.PredictHotspots(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), domain.AnalysisResult{Predictions: preds}.Payload())
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the dashboard summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sum, err := a.Monitor.Summary(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		})
	},
}

func init() {
	entitiesListCmd.Flags().StringVar(&listSort, "sort", "", "sort field, prefix with - for descending")
	entitiesListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum records (0 = 100, negative = all)")
	entitiesCmd.AddCommand(entitiesListCmd, entitiesNamesCmd)
}
