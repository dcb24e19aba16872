package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/jgoulah/gridcast/pkg/models"
)

const (
	// DefaultWindow is the trailing window of the baseline, in days
	DefaultWindow = 7

	// SourceBaseline tags forecasts produced by Baseline
	SourceBaseline = "baseline"
)

// Baseline forecasts every date of the series as the mean of the series over the calendar
// window [d-window+1, d]. Only dates present in the series count, so the first point
// forecasts itself and gaps shrink the sample. There is no minimum history length.
//
// The forecast is in-sample: each point's own actual is part of its mean.
func Baseline(series models.DailySeries, window int) (models.ForecastSeries, error) {
	if window < 1 {
		return models.ForecastSeries{}, fmt.Errorf("%w: window must be at least 1 (got %d)", models.ErrConfiguration, window)
	}

	fc := models.ForecastSeries{
		Source: SourceBaseline,
		Points: make([]models.ForecastPoint, 0, len(series.Points)),
	}

	lo := 0
	values := make([]float64, 0, window)
	for i, p := range series.Points {
		first := models.DateKey(p.Date.AddDate(0, 0, -(window - 1)))
		for models.DateKey(series.Points[lo].Date) < first {
			lo++
		}

		values = values[:0]
		for _, w := range series.Points[lo : i+1] {
			values = append(values, w.KWh)
		}
		fc.Points = append(fc.Points, models.ForecastPoint{
			Date: p.Date,
			Yhat: stat.Mean(values, nil),
		})
	}

	return fc, nil
}
