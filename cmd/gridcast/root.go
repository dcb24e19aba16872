package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridcast/internal/aggregate"
	"github.com/jgoulah/gridcast/internal/config"
	"github.com/jgoulah/gridcast/internal/database"
	"github.com/jgoulah/gridcast/internal/interchange"
	"github.com/jgoulah/gridcast/internal/log"
	"github.com/jgoulah/gridcast/pkg/models"
)

var (
	cfgFile  string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "gridcast",
	Short: "Simulate appliance electricity usage and evaluate daily forecasts",
	Long: `GridCast generates synthetic per-appliance, per-user electricity usage, aggregates it
into daily totals, computes a moving-average baseline forecast and reports MAE/RMSE
against the baseline or an externally supplied forecast.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetDefaultLogLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "data.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// loadReadings reads the raw table from a CSV file or, when runID is set, from a stored run
func loadReadings(cfg *config.Config, inPath, runID string) ([]models.UsageReading, error) {
	if runID != "" {
		db, err := openDB()
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		run, err := db.GetRun(runID)
		if err != nil {
			return nil, fmt.Errorf("loading run: %w", err)
		}
		if run == nil {
			return nil, fmt.Errorf("run %s not found", runID)
		}

		readings, err := db.ListReadings(runID)
		if err != nil {
			return nil, fmt.Errorf("listing readings: %w", err)
		}
		return inConfigLocation(cfg, readings)
	}

	if inPath == "" {
		return nil, fmt.Errorf("either --in or --run is required")
	}

	loc, err := cfg.GetLocation()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("opening raw table: %w", err)
	}
	defer f.Close()

	readings, err := interchange.ReadReadings(f, loc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inPath, err)
	}
	return inConfigLocation(cfg, readings)
}

// inConfigLocation moves timestamps into the configured timezone so that calendar days
// follow it rather than the offset a timestamp was serialized with
func inConfigLocation(cfg *config.Config, readings []models.UsageReading) ([]models.UsageReading, error) {
	if cfg.Generation.Timezone == "" {
		return readings, nil
	}
	loc, err := cfg.GetLocation()
	if err != nil {
		return nil, err
	}
	for i := range readings {
		readings[i].Timestamp = readings[i].Timestamp.In(loc)
	}
	return readings, nil
}

// selectPairs returns the pairs matching an appliance (id or name) and user filter.
// Empty filters match everything.
func selectPairs(readings []models.UsageReading, appliance, user string) ([]aggregate.Pair, error) {
	var selected []aggregate.Pair
	for _, p := range aggregate.Pairs(readings) {
		if appliance != "" && !matchesAppliance(p, appliance) {
			continue
		}
		if user != "" && p.UserID != user {
			continue
		}
		selected = append(selected, p)
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("no readings for appliance %q and user %q", appliance, user)
	}
	return selected, nil
}

func matchesAppliance(p aggregate.Pair, appliance string) bool {
	if id, err := strconv.Atoi(appliance); err == nil {
		return p.ApplianceID == id
	}
	return strings.EqualFold(string(p.ApplianceName), appliance)
}

// parseDate parses a date string in either YYYY-MM-DD format or relative format (e.g., "7d")
func parseDate(dateStr string, loc *time.Location) (time.Time, error) {
	// Try absolute date format first
	t, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err == nil {
		return t, nil
	}

	// Try relative format (e.g., "7d" for 7 days ago)
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil {
			return models.DateOf(time.Now().In(loc).AddDate(0, 0, -days)), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}

// writeFile creates path and hands it to write
func writeFile(path string, write func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
