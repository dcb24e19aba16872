package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridcast/internal/aggregate"
	"github.com/jgoulah/gridcast/internal/config"
	"github.com/jgoulah/gridcast/internal/database"
	"github.com/jgoulah/gridcast/internal/forecast"
	"github.com/jgoulah/gridcast/internal/interchange"
	"github.com/jgoulah/gridcast/internal/metrics"
	"github.com/jgoulah/gridcast/pkg/models"
)

var (
	evaluateIn          string
	evaluateRun         string
	evaluateAppliance   string
	evaluateUser        string
	evaluateForecast    string
	evaluateWindow      int
	evaluateMetricsOut  string
	evaluateMetricsFile string
	evaluateShow        bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare daily usage against a forecast",
	Long: `Computes MAE and RMSE of a forecast against daily usage, over the dates both
share. The forecast is the moving-average baseline unless --forecast points to an
external ds,yhat[,yhat_lower,yhat_upper] CSV.

The baseline is fitted on the same days it is evaluated on, so its errors measure
in-sample fit rather than out-of-sample accuracy.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateIn, "in", "", "Raw table CSV path")
	evaluateCmd.Flags().StringVar(&evaluateRun, "run", "", "Read readings from a stored run and save the metrics into it")
	evaluateCmd.Flags().StringVar(&evaluateAppliance, "appliance", "", "Filter by appliance id or name")
	evaluateCmd.Flags().StringVar(&evaluateUser, "user", "", "Filter by user id")
	evaluateCmd.Flags().StringVar(&evaluateForecast, "forecast", "", "External forecast CSV (requires a single appliance and user)")
	evaluateCmd.Flags().IntVar(&evaluateWindow, "window", 0, "Baseline window in days (default from config, fallback 7)")
	evaluateCmd.Flags().StringVar(&evaluateMetricsOut, "metrics-out", "", "Write MAE/RMSE text for a single pair to this path")
	evaluateCmd.Flags().StringVar(&evaluateMetricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	evaluateCmd.Flags().BoolVar(&evaluateShow, "show", false, "Print the aligned actual and forecast values")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	readings, err := loadReadings(cfg, evaluateIn, evaluateRun)
	if err != nil {
		return err
	}
	pairs, err := selectPairs(readings, evaluateAppliance, evaluateUser)
	if err != nil {
		return err
	}
	if (evaluateForecast != "" || evaluateMetricsOut != "") && len(pairs) != 1 {
		return fmt.Errorf("--forecast and --metrics-out need exactly one appliance and user (matched %d pairs)", len(pairs))
	}

	var external *models.ForecastSeries
	if evaluateForecast != "" {
		fc, err := loadForecast(cfg, evaluateForecast)
		if err != nil {
			return err
		}
		external = &fc
	}

	var db *database.DB
	if evaluateRun != "" {
		db, err = openDB()
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
	}

	rec := metrics.NewRecorder()
	window := windowFor(cmd, cfg.GetWindow())

	fmt.Printf("%-18s  %-8s  %-10s  %5s  %10s  %10s\n", "Appliance", "User", "Forecast", "Days", "MAE", "RMSE")
	fmt.Println("------------------------------------------------------------------------")

	evaluated := 0
	for _, pair := range pairs {
		series := aggregate.Daily(readings, pair.ApplianceID, pair.UserID)
		rec.ObserveDaily(series)

		var fc models.ForecastSeries
		if external != nil {
			fc = *external
		} else {
			fc, err = forecast.Baseline(series, window)
			if err != nil {
				return err
			}
		}

		m, err := forecast.Evaluate(series, fc)
		if errors.Is(err, models.ErrNoOverlappingData) {
			fmt.Printf("%-18s  %-8s  %-10s  no overlapping dates between usage and forecast\n", series.ApplianceName, series.UserID, fc.Source)
			continue
		}
		if err != nil {
			return fmt.Errorf("evaluating %s/%s: %w", series.ApplianceName, series.UserID, err)
		}
		evaluated++

		fmt.Printf("%-18s  %-8s  %-10s  %5d  %10.4f  %10.4f\n", series.ApplianceName, series.UserID, fc.Source, m.N, m.MAE, m.RMSE)
		if evaluateShow {
			printAligned(forecast.Align(series, fc))
		}

		rec.ObserveEvaluation(series, fc.Source, m)
		if db != nil {
			stored := &models.StoredMetrics{RunID: evaluateRun, ApplianceID: series.ApplianceID, UserID: series.UserID, Source: fc.Source, Metrics: m}
			if err := db.SaveMetrics(stored); err != nil {
				return fmt.Errorf("saving metrics: %w", err)
			}
		}
		if evaluateMetricsOut != "" {
			if err := writeFile(evaluateMetricsOut, func(f *os.File) error { return interchange.WriteMetrics(f, m) }); err != nil {
				return err
			}
		}
	}

	if evaluateMetricsFile != "" {
		if err := rec.WriteTextfile(evaluateMetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	if evaluated == 0 {
		return models.ErrNoOverlappingData
	}
	return nil
}

func loadForecast(cfg *config.Config, path string) (models.ForecastSeries, error) {
	loc, err := cfg.GetLocation()
	if err != nil {
		return models.ForecastSeries{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return models.ForecastSeries{}, fmt.Errorf("opening forecast: %w", err)
	}
	defer f.Close()

	fc, err := interchange.ReadForecast(f, "external", loc)
	if err != nil {
		return models.ForecastSeries{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return fc, nil
}

func printAligned(aligned []forecast.AlignedPoint) {
	for _, a := range aligned {
		line := fmt.Sprintf("    %s  actual %8.3f  forecast %8.3f  error %+8.3f", models.DateKey(a.Actual.Date), a.Actual.KWh, a.Forecast.Yhat, a.Error())
		if b := a.Forecast.Bounds; b != nil {
			line += fmt.Sprintf("  [%.3f, %.3f]", b.Lower, b.Upper)
		}
		fmt.Println(line)
	}
}
