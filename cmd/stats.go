package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/sips-and-steals/deals-cli/internal/resolver"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show coverage statistics for the current stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		schedules, err := env.Pipeline.ResolveAll("", time.Now())
		if err != nil {
			return err
		}

		tiers := make(map[resolver.Tier]int)
		byDistrict := make(map[string]int)
		totalDeals := 0
		for _, s := range schedules {
			tiers[s.Tier]++
			byDistrict[s.Restaurant.District]++
			totalDeals += len(s.Deals)
		}

		fmt.Printf("Restaurants with deals: %d\n", len(schedules))
		fmt.Printf("Canonical deals:        %d\n", totalDeals)
		fmt.Printf("Data tiers:             fresh %d, stale %d, static %d\n",
			tiers[resolver.TierFreshLive], tiers[resolver.TierStaleLive], tiers[resolver.TierStatic])

		districts := make([]string, 0, len(byDistrict))
		for d := range byDistrict {
			districts = append(districts, d)
		}
		sort.Strings(districts)

		fmt.Println("By district:")
		for _, d := range districts {
			fmt.Printf("  %-20s %d\n", d, byDistrict[d])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
