package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/jgoulah/gridcast/pkg/models"
)

// AlignedPoint is one date present in both the actual and the forecast series
type AlignedPoint struct {
	Actual   models.DailyUsage
	Forecast models.ForecastPoint
}

// Error returns actual minus forecast
func (a AlignedPoint) Error() float64 {
	return a.Actual.KWh - a.Forecast.Yhat
}

// Align pairs actual and forecast points by calendar date, in actual's date order.
// Dates present in only one of the series are dropped. If the forecast repeats a date the
// first occurrence wins.
func Align(actual models.DailySeries, fc models.ForecastSeries) []AlignedPoint {
	byDate := make(map[string]models.ForecastPoint, len(fc.Points))
	for _, p := range fc.Points {
		key := models.DateKey(p.Date)
		if _, ok := byDate[key]; !ok {
			byDate[key] = p
		}
	}

	var aligned []AlignedPoint
	for _, a := range actual.Points {
		if f, ok := byDate[models.DateKey(a.Date)]; ok {
			aligned = append(aligned, AlignedPoint{Actual: a, Forecast: f})
		}
	}
	return aligned
}

// Evaluate computes MAE and RMSE over the dates shared by actual and fc. Dates present in
// only one series are ignored; ErrNoOverlappingData is returned when none are shared.
// Forecast bounds do not affect the result.
func Evaluate(actual models.DailySeries, fc models.ForecastSeries) (models.Metrics, error) {
	aligned := Align(actual, fc)
	if len(aligned) == 0 {
		return models.Metrics{}, models.ErrNoOverlappingData
	}

	abs := make([]float64, len(aligned))
	sq := make([]float64, len(aligned))
	for i, a := range aligned {
		e := a.Error()
		abs[i] = math.Abs(e)
		sq[i] = e * e
	}

	return models.Metrics{
		MAE:  stat.Mean(abs, nil),
		RMSE: math.Sqrt(stat.Mean(sq, nil)),
		N:    len(aligned),
	}, nil
}
