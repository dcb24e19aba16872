package models

import (
	"errors"
	"time"
)

var (
	// ErrConfiguration is returned for invalid pipeline parameters, before any work starts
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNoOverlappingData is returned when actual and forecast share no dates.
	// It is distinct from a zero error result.
	ErrNoOverlappingData = errors.New("no overlapping data between actual and forecast")
)

// Bounds is an optional confidence interval around a point forecast
type Bounds struct {
	Lower float64 `json:"yhat_lower"`
	Upper float64 `json:"yhat_upper"`
}

// ForecastPoint is the forecast for one date
type ForecastPoint struct {
	Date   time.Time `json:"ds"`
	Yhat   float64   `json:"yhat"`
	Bounds *Bounds   `json:"bounds,omitempty"`
}

// ForecastSeries maps dates to point estimates, sorted by date.
// Source names where the forecast came from ("baseline" or an external file).
type ForecastSeries struct {
	Source string          `json:"source"`
	Points []ForecastPoint `json:"points"`
}

// HasBounds reports whether any point carries a confidence interval
func (f ForecastSeries) HasBounds() bool {
	for _, p := range f.Points {
		if p.Bounds != nil {
			return true
		}
	}
	return false
}

// Metrics holds forecast error statistics over N aligned dates
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	N    int     `json:"n"`
}
