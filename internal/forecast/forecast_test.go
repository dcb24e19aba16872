package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridcast/pkg/models"
)

var day1 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func seriesOf(start time.Time, values ...float64) models.DailySeries {
	s := models.DailySeries{ApplianceID: 1, ApplianceName: models.AirConditioner, UserID: "101"}
	for i, v := range values {
		s.Points = append(s.Points, models.DailyUsage{Date: start.AddDate(0, 0, i), KWh: v})
	}
	return s
}

func forecastOf(start time.Time, values ...float64) models.ForecastSeries {
	fc := models.ForecastSeries{Source: "test"}
	for i, v := range values {
		fc.Points = append(fc.Points, models.ForecastPoint{Date: start.AddDate(0, 0, i), Yhat: v})
	}
	return fc
}

func TestBaseline(t *testing.T) {
	series := seriesOf(day1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	fc, err := Baseline(series, DefaultWindow)
	require.NoError(t, err)
	assert.Equal(t, SourceBaseline, fc.Source)
	assert.False(t, fc.HasBounds())
	require.Len(t, fc.Points, 10)

	// first point forecasts itself
	assert.InDelta(t, 1.0, fc.Points[0].Yhat, 1e-9)
	// partial window
	assert.InDelta(t, 2.0, fc.Points[2].Yhat, 1e-9)
	// point 8 averages points 2..8
	assert.InDelta(t, (2.0+3+4+5+6+7+8)/7, fc.Points[7].Yhat, 1e-9)
	assert.InDelta(t, (4.0+5+6+7+8+9+10)/7, fc.Points[9].Yhat, 1e-9)

	for i, p := range fc.Points {
		assert.Equal(t, series.Points[i].Date, p.Date)
		assert.Nil(t, p.Bounds)
	}
}

func TestBaselineCalendarWindow(t *testing.T) {
	// days 1, 2 and 6: with a 3 day window day 6 only sees itself
	series := models.DailySeries{Points: []models.DailyUsage{
		{Date: day1, KWh: 1},
		{Date: day1.AddDate(0, 0, 1), KWh: 3},
		{Date: day1.AddDate(0, 0, 5), KWh: 10},
		{Date: day1.AddDate(0, 0, 6), KWh: 20},
	}}

	fc, err := Baseline(series, 3)
	require.NoError(t, err)
	require.Len(t, fc.Points, 4)
	assert.InDelta(t, 1.0, fc.Points[0].Yhat, 1e-9)
	assert.InDelta(t, 2.0, fc.Points[1].Yhat, 1e-9)
	assert.InDelta(t, 10.0, fc.Points[2].Yhat, 1e-9)
	assert.InDelta(t, 15.0, fc.Points[3].Yhat, 1e-9)
}

func TestBaselineShortSeries(t *testing.T) {
	fc, err := Baseline(seriesOf(day1, 4, 6), DefaultWindow)
	require.NoError(t, err)
	require.Len(t, fc.Points, 2)
	assert.InDelta(t, 5.0, fc.Points[1].Yhat, 1e-9)

	fc, err = Baseline(models.DailySeries{}, DefaultWindow)
	require.NoError(t, err)
	assert.Empty(t, fc.Points)
}

func TestBaselineWindowOne(t *testing.T) {
	series := seriesOf(day1, 3, 1, 4, 1, 5)
	fc, err := Baseline(series, 1)
	require.NoError(t, err)
	for i, p := range fc.Points {
		assert.InDelta(t, series.Points[i].KWh, p.Yhat, 1e-9)
	}
}

func TestBaselineInvalidWindow(t *testing.T) {
	_, err := Baseline(seriesOf(day1, 1), 0)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		actual   models.DailySeries
		forecast models.ForecastSeries
		want     models.Metrics
	}{
		{
			name:     "identical",
			actual:   seriesOf(day1, 1, 2, 3),
			forecast: forecastOf(day1, 1, 2, 3),
			want:     models.Metrics{MAE: 0, RMSE: 0, N: 3},
		},
		{
			name:     "constant offset",
			actual:   seriesOf(day1, 2, 4),
			forecast: forecastOf(day1, 1, 3),
			want:     models.Metrics{MAE: 1, RMSE: 1, N: 2},
		},
		{
			name:     "mixed errors",
			actual:   seriesOf(day1, 0, 0),
			forecast: forecastOf(day1, 3, -4),
			want:     models.Metrics{MAE: 3.5, RMSE: math.Sqrt(12.5), N: 2},
		},
		{
			name:     "only the intersection counts",
			actual:   seriesOf(day1, 5, 2, 4),
			forecast: forecastOf(day1.AddDate(0, 0, 1), 1, 3, 100),
			want:     models.Metrics{MAE: 1, RMSE: 1, N: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.actual, tt.forecast)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.MAE, got.MAE, 1e-9)
			assert.InDelta(t, tt.want.RMSE, got.RMSE, 1e-9)
			assert.Equal(t, tt.want.N, got.N)
		})
	}
}

func TestEvaluateIgnoresBounds(t *testing.T) {
	fc := forecastOf(day1, 1, 3)
	fc.Points[0].Bounds = &models.Bounds{Lower: 0, Upper: 100}

	got, err := Evaluate(seriesOf(day1, 2, 4), fc)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.MAE, 1e-9)
	assert.True(t, fc.HasBounds())
}

func TestEvaluateNoOverlap(t *testing.T) {
	_, err := Evaluate(seriesOf(day1, 1, 2), forecastOf(day1.AddDate(0, 0, 10), 1, 2))
	assert.ErrorIs(t, err, models.ErrNoOverlappingData)

	_, err = Evaluate(models.DailySeries{}, models.ForecastSeries{})
	assert.ErrorIs(t, err, models.ErrNoOverlappingData)
}

func TestEvaluateBaselineInSample(t *testing.T) {
	series := seriesOf(day1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	fc, err := Baseline(series, DefaultWindow)
	require.NoError(t, err)

	got, err := Evaluate(series, fc)
	require.NoError(t, err)
	assert.Equal(t, 10, got.N)
	assert.Greater(t, got.RMSE, 0.0)
	assert.GreaterOrEqual(t, got.RMSE, got.MAE)
}

func TestAlignAcrossLocations(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	actual := models.DailySeries{Points: []models.DailyUsage{{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, ny), KWh: 2}}}
	fc := forecastOf(day1, 1)

	aligned := Align(actual, fc)
	require.Len(t, aligned, 1)
	assert.InDelta(t, 1.0, aligned[0].Error(), 1e-9)
}
