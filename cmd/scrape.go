package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sips-and-steals/deals-cli/internal/resolver"
)

var (
	scrapeDistrict string
	scrapeWorkers  int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape restaurant websites and refresh live deals",
	Long:  "Fetches every scrapable restaurant's pages, extracts deals, replaces the live snapshots, and archives the resolved schedules. Individual site failures are reported but never fail the run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if scrapeWorkers > 0 {
			cfg.Pipeline.Workers = scrapeWorkers
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Pipeline.Run(ctx, scrapeDistrict)
		if err != nil {
			return err
		}

		fmt.Printf("Run finished in %s\n", stats.FinishedAt.Sub(stats.StartedAt).Round(10*time.Millisecond))
		fmt.Printf("  restaurants: %d (scraped %d, failed %d, skipped %d)\n",
			stats.Restaurants, stats.Scraped, stats.Failed, stats.Skipped)
		fmt.Printf("  deals found: %d (rejected candidates: %d)\n", stats.DealsFound, stats.Rejections)
		fmt.Printf("  schedules: fresh %d, stale %d, static %d, none %d\n",
			stats.TierCounts[resolver.TierFreshLive],
			stats.TierCounts[resolver.TierStaleLive],
			stats.TierCounts[resolver.TierStatic],
			stats.TierCounts[resolver.TierNone],
		)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeDistrict, "district", "", "only scrape restaurants in this district")
	scrapeCmd.Flags().IntVar(&scrapeWorkers, "workers", 0, "worker pool size (default from config)")
	rootCmd.AddCommand(scrapeCmd)
}
