package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridcast/internal/aggregate"
	"github.com/jgoulah/gridcast/internal/forecast"
	"github.com/jgoulah/gridcast/internal/log"
	"github.com/jgoulah/gridcast/internal/publisher"
	"github.com/jgoulah/gridcast/pkg/models"
)

var (
	publishIn        string
	publishRun       string
	publishAppliance string
	publishUser      string
	publishWindow    int
	publishNoMetrics bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish daily usage and baseline metrics over MQTT",
	Long: `Aggregates readings into daily usage per appliance and user and publishes each
series, with its baseline MAE/RMSE, as JSON to the configured MQTT broker.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishIn, "in", "", "Raw table CSV path")
	publishCmd.Flags().StringVar(&publishRun, "run", "", "Read readings from a stored run instead of --in")
	publishCmd.Flags().StringVar(&publishAppliance, "appliance", "", "Filter by appliance id or name")
	publishCmd.Flags().StringVar(&publishUser, "user", "", "Filter by user id")
	publishCmd.Flags().IntVar(&publishWindow, "window", 0, "Baseline window in days (default from config, fallback 7)")
	publishCmd.Flags().BoolVar(&publishNoMetrics, "no-metrics", false, "Only publish the daily series")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	readings, err := loadReadings(cfg, publishIn, publishRun)
	if err != nil {
		return err
	}
	pairs, err := selectPairs(readings, publishAppliance, publishUser)
	if err != nil {
		return err
	}

	pub, err := publisher.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	window := windowFor(cmd, cfg.GetWindow())

	fmt.Printf("Publishing %d series to %s...\n", len(pairs), cfg.MQTT.Broker)
	published := 0
	for i, pair := range pairs {
		series := aggregate.Daily(readings, pair.ApplianceID, pair.UserID)
		fmt.Printf("[%d/%d] Publishing %s/%s (%d days, %.2f kWh)... ", i+1, len(pairs), series.ApplianceName, series.UserID, series.Len(), series.Sum())

		if err := pub.PublishDaily(series); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		if !publishNoMetrics {
			m, err := baselineMetrics(series, window)
			switch {
			case errors.Is(err, models.ErrNoOverlappingData):
				log.Ctx(ctx).InfoContext(ctx, "no overlapping data, skipping metrics", "topic", pub.Topic(series, "metrics"))
			case err != nil:
				return err
			default:
				if err := pub.PublishMetrics(series, forecast.SourceBaseline, m); err != nil {
					fmt.Printf("✓ (warning: failed to publish metrics: %v)\n", err)
					published++
					continue
				}
			}
		}

		fmt.Printf("✓\n")
		published++
	}

	fmt.Printf("\nTotal series published: %d/%d\n", published, len(pairs))
	if published < len(pairs) {
		return fmt.Errorf("%d series failed to publish", len(pairs)-published)
	}
	return nil
}

func baselineMetrics(series models.DailySeries, window int) (models.Metrics, error) {
	fc, err := forecast.Baseline(series, window)
	if err != nil {
		return models.Metrics{}, err
	}
	return forecast.Evaluate(series, fc)
}
