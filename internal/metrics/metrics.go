package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jgoulah/gridcast/pkg/models"
)

// Recorder collects pipeline statistics on its own registry so that a batch run can write
// them out as a node_exporter textfile
type Recorder struct {
	registry *prometheus.Registry

	// ReadingsTotal counts generated readings
	ReadingsTotal *prometheus.CounterVec
	// ZeroReadingsTotal counts generated readings with zero usage (appliance off)
	ZeroReadingsTotal *prometheus.CounterVec
	// UsageKWhTotal sums generated usage
	UsageKWhTotal *prometheus.CounterVec
	// GenerationDuration is the wall time of the last generation pass
	GenerationDuration prometheus.Gauge

	// DailyDays is the number of days in each aggregated series
	DailyDays *prometheus.GaugeVec

	// ForecastMAE and ForecastRMSE hold the latest evaluation per pair and forecast source
	ForecastMAE  *prometheus.GaugeVec
	ForecastRMSE *prometheus.GaugeVec
	// ForecastPoints is the number of aligned dates behind the latest evaluation
	ForecastPoints *prometheus.GaugeVec
}

// NewRecorder creates a recorder with every collector registered
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		ReadingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridcast_readings_total",
				Help: "Total number of generated usage readings",
			},
			[]string{"appliance"},
		),
		ZeroReadingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridcast_zero_readings_total",
				Help: "Generated readings with zero usage",
			},
			[]string{"appliance"},
		),
		UsageKWhTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridcast_usage_kwh_total",
				Help: "Total generated usage in kWh",
			},
			[]string{"appliance"},
		),
		GenerationDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridcast_generation_duration_seconds",
				Help: "Duration of the last generation pass in seconds",
			},
		),
		DailyDays: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridcast_daily_series_days",
				Help: "Number of days in the aggregated daily series",
			},
			[]string{"appliance", "user"},
		),
		ForecastMAE: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridcast_forecast_mae_kwh",
				Help: "Mean absolute error of the forecast against daily usage",
			},
			[]string{"appliance", "user", "source"},
		),
		ForecastRMSE: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridcast_forecast_rmse_kwh",
				Help: "Root mean square error of the forecast against daily usage",
			},
			[]string{"appliance", "user", "source"},
		),
		ForecastPoints: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridcast_forecast_aligned_days",
				Help: "Number of dates shared by the actual and forecast series",
			},
			[]string{"appliance", "user", "source"},
		),
	}
}

// ObserveGeneration records a generated raw table and how long it took
func (r *Recorder) ObserveGeneration(readings []models.UsageReading, took time.Duration) {
	for _, reading := range readings {
		appliance := string(reading.ApplianceName)
		r.ReadingsTotal.WithLabelValues(appliance).Inc()
		r.UsageKWhTotal.WithLabelValues(appliance).Add(reading.Usage)
		if reading.Usage == 0 {
			r.ZeroReadingsTotal.WithLabelValues(appliance).Inc()
		}
	}
	r.GenerationDuration.Set(took.Seconds())
}

// ObserveDaily records the size of an aggregated series
func (r *Recorder) ObserveDaily(series models.DailySeries) {
	r.DailyDays.WithLabelValues(string(series.ApplianceName), series.UserID).Set(float64(series.Len()))
}

// ObserveEvaluation records the metrics of one evaluated pair
func (r *Recorder) ObserveEvaluation(series models.DailySeries, source string, m models.Metrics) {
	labels := []string{string(series.ApplianceName), series.UserID, source}
	r.ForecastMAE.WithLabelValues(labels...).Set(m.MAE)
	r.ForecastRMSE.WithLabelValues(labels...).Set(m.RMSE)
	r.ForecastPoints.WithLabelValues(labels...).Set(float64(m.N))
}

// Gatherer exposes the recorder's registry
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every collected metric in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
