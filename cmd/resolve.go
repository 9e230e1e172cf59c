package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sips-and-steals/deals-cli/internal/model"
)

var (
	resolveDistrict string
	resolveJSON     bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the resolved deal schedule for every restaurant",
	Long:  "Applies the three-tier fallback (fresh live, stale live, static) over the current stores without scraping anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		schedules, err := env.Pipeline.ResolveAll(resolveDistrict, time.Now())
		if err != nil {
			return err
		}

		if resolveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(schedules)
		}

		for _, s := range schedules {
			fmt.Printf("%s (%s) [%s]\n", s.Restaurant.Name, s.Restaurant.District, s.Tier)
			for _, d := range s.Deals {
				fmt.Printf("  - %s\n", formatDeal(d))
			}
		}
		fmt.Printf("%d restaurants resolved\n", len(schedules))
		return nil
	},
}

func formatDeal(d model.Deal) string {
	var b strings.Builder
	b.WriteString(d.Title)

	if len(d.DaysOfWeek) > 0 {
		days := make([]string, len(d.DaysOfWeek))
		for i, day := range d.DaysOfWeek {
			days[i] = strings.ToUpper(string(day)[:3])
		}
		fmt.Fprintf(&b, " %s", strings.Join(days, ","))
	}
	switch {
	case d.IsAllDay:
		b.WriteString(" all day")
	case d.StartTime != "" && d.EndTime != "":
		fmt.Fprintf(&b, " %s-%s", d.StartTime, d.EndTime)
	case d.StartTime != "":
		fmt.Fprintf(&b, " from %s", d.StartTime)
	}
	if d.Price != "" {
		fmt.Fprintf(&b, " (%s)", d.Price)
	}
	fmt.Fprintf(&b, " conf=%.2f", d.ConfidenceScore)
	return b.String()
}

func init() {
	resolveCmd.Flags().StringVar(&resolveDistrict, "district", "", "only resolve restaurants in this district")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "emit JSON instead of text")
	rootCmd.AddCommand(resolveCmd)
}
