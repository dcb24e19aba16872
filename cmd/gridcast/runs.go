package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridcast/internal/database"
)

var runsShow string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored generation runs",
	Long:  `Lists the runs saved with 'generate --store', or the evaluation results saved against one run.`,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsShow, "show", "", "Show the stored metrics of this run")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if runsShow != "" {
		return showRun(db, runsShow)
	}

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored")
		return nil
	}

	fmt.Printf("%-36s  %-16s  %-10s  %-10s  %8s  %20s  %10s\n", "Run", "Created", "Start", "End", "Interval", "Seed", "Readings")
	fmt.Println("--------------------------------------------------------------------------------------------------------------------------")
	for _, run := range runs {
		fmt.Printf("%-36s  %-16s  %-10s  %-10s  %8s  %20d  %10s\n",
			run.ID,
			humanize.Time(run.CreatedAt),
			run.Start.Format("2006-01-02"),
			run.End.Format("2006-01-02"),
			run.Interval,
			run.Seed,
			humanize.Comma(int64(run.Readings)),
		)
	}
	return nil
}

func showRun(db *database.DB, id string) error {
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  Created:  %s (%s)\n", run.CreatedAt.Format("2006-01-02 15:04:05 MST"), humanize.Time(run.CreatedAt))
	fmt.Printf("  Range:    %s to %s every %s\n", run.Start.Format("2006-01-02 15:04"), run.End.Format("2006-01-02 15:04"), run.Interval)
	fmt.Printf("  Seed:     %d\n", run.Seed)
	fmt.Printf("  Readings: %s\n", humanize.Comma(int64(run.Readings)))

	stored, err := db.ListMetrics(id)
	if err != nil {
		return fmt.Errorf("listing metrics: %w", err)
	}
	if len(stored) == 0 {
		fmt.Println("\nNo metrics stored (run 'gridcast evaluate --run " + id + "')")
		return nil
	}

	fmt.Printf("\n%-10s  %-8s  %-10s  %5s  %10s  %10s\n", "Appliance", "User", "Forecast", "Days", "MAE", "RMSE")
	fmt.Println("--------------------------------------------------------------")
	for _, m := range stored {
		fmt.Printf("%-10d  %-8s  %-10s  %5d  %10.4f  %10.4f\n", m.ApplianceID, m.UserID, m.Source, m.Metrics.N, m.Metrics.MAE, m.Metrics.RMSE)
	}
	return nil
}
