package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridcast/internal/aggregate"
	"github.com/jgoulah/gridcast/internal/forecast"
	"github.com/jgoulah/gridcast/internal/interchange"
)

var (
	forecastIn        string
	forecastRun       string
	forecastAppliance string
	forecastUser      string
	forecastWindow    int
	forecastOut       string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Compute the moving-average baseline forecast for one appliance and user",
	Long: `Aggregates the readings of one appliance and user into daily usage and writes a
trailing moving-average forecast as ds,yhat CSV.`,
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastIn, "in", "", "Raw table CSV path")
	forecastCmd.Flags().StringVar(&forecastRun, "run", "", "Read readings from a stored run instead of --in")
	forecastCmd.Flags().StringVar(&forecastAppliance, "appliance", "", "Appliance id or name (required)")
	forecastCmd.Flags().StringVar(&forecastUser, "user", "", "User id (required)")
	forecastCmd.Flags().IntVar(&forecastWindow, "window", 0, "Trailing window in days (default from config, fallback 7)")
	forecastCmd.Flags().StringVar(&forecastOut, "out", "-", "Forecast CSV path (- for stdout)")
	_ = forecastCmd.MarkFlagRequired("appliance")
	_ = forecastCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	readings, err := loadReadings(cfg, forecastIn, forecastRun)
	if err != nil {
		return err
	}
	pairs, err := selectPairs(readings, forecastAppliance, forecastUser)
	if err != nil {
		return err
	}
	if len(pairs) != 1 {
		return fmt.Errorf("appliance %q and user %q match %d pairs, expected one", forecastAppliance, forecastUser, len(pairs))
	}

	series := aggregate.Daily(readings, pairs[0].ApplianceID, pairs[0].UserID)
	fc, err := forecast.Baseline(series, windowFor(cmd, cfg.GetWindow()))
	if err != nil {
		return err
	}

	if forecastOut == "-" {
		return interchange.WriteForecast(os.Stdout, fc)
	}
	if err := writeFile(forecastOut, func(f *os.File) error { return interchange.WriteForecast(f, fc) }); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %d forecast days to %s\n", len(fc.Points), forecastOut)
	return nil
}

// windowFor returns the --window flag when it was given, even if invalid, so that
// Baseline can reject it
func windowFor(cmd *cobra.Command, configured int) int {
	if f := cmd.Flags().Lookup("window"); f != nil && f.Changed {
		w, err := cmd.Flags().GetInt("window")
		if err == nil {
			return w
		}
	}
	return configured
}
