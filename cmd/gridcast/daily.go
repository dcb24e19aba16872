package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridcast/internal/aggregate"
	"github.com/jgoulah/gridcast/internal/database"
	"github.com/jgoulah/gridcast/pkg/models"
)

var (
	dailyIn        string
	dailyRun       string
	dailyAppliance string
	dailyUser      string
	dailySince     string
	dailyUntil     string
	dailySave      bool
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Aggregate raw readings into daily usage",
	Long: `Sums readings per calendar day for each appliance and user and prints the daily
series. Days without readings are not shown.`,
	RunE: runDaily,
}

func init() {
	dailyCmd.Flags().StringVar(&dailyIn, "in", "", "Raw table CSV path")
	dailyCmd.Flags().StringVar(&dailyRun, "run", "", "Read readings from a stored run instead of --in")
	dailyCmd.Flags().StringVar(&dailyAppliance, "appliance", "", "Filter by appliance id or name")
	dailyCmd.Flags().StringVar(&dailyUser, "user", "", "Filter by user id")
	dailyCmd.Flags().StringVar(&dailySince, "since", "", "Only show days since this date (YYYY-MM-DD or relative like 7d)")
	dailyCmd.Flags().StringVar(&dailyUntil, "until", "", "Only show days until this date (YYYY-MM-DD)")
	dailyCmd.Flags().BoolVar(&dailySave, "save", false, "Store the daily series in the run (requires --run)")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dailySave && dailyRun == "" {
		return fmt.Errorf("--save requires --run")
	}

	readings, err := loadReadings(cfg, dailyIn, dailyRun)
	if err != nil {
		return err
	}
	pairs, err := selectPairs(readings, dailyAppliance, dailyUser)
	if err != nil {
		return err
	}

	// Parse date filters if provided
	loc, err := cfg.GetLocation()
	if err != nil {
		return err
	}
	var sinceDate, untilDate *string
	if dailySince != "" {
		since, err := parseDate(dailySince, loc)
		if err != nil {
			return fmt.Errorf("parsing --since date: %w", err)
		}
		key := models.DateKey(since)
		sinceDate = &key
	}
	if dailyUntil != "" {
		until, err := parseDate(dailyUntil, loc)
		if err != nil {
			return fmt.Errorf("parsing --until date: %w", err)
		}
		key := models.DateKey(until)
		untilDate = &key
	}

	var db *database.DB
	if dailySave {
		db, err = openDB()
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
	}

	for _, pair := range pairs {
		series := aggregate.Daily(readings, pair.ApplianceID, pair.UserID)

		if db != nil {
			if err := db.ReplaceDaily(dailyRun, series); err != nil {
				return fmt.Errorf("saving daily usage: %w", err)
			}
		}

		fmt.Printf("\n%s (appliance %d), user %s:\n", series.ApplianceName, series.ApplianceID, series.UserID)
		fmt.Println("----------------------------------------")
		fmt.Printf("%-12s  %10s\n", "Date", "kWh")
		fmt.Println("----------------------------------------")

		var total float64
		var days int
		for _, p := range series.Points {
			key := models.DateKey(p.Date)
			if sinceDate != nil && key < *sinceDate {
				continue
			}
			if untilDate != nil && key > *untilDate {
				continue
			}
			fmt.Printf("%-12s  %10.3f\n", key, p.KWh)
			total += p.KWh
			days++
		}

		fmt.Println("----------------------------------------")
		fmt.Printf("Total: %s kWh (%d days)\n", humanize.FormatFloat("#,###.###", total), days)
	}

	return nil
}
