package models

import "time"

// ApplianceType tags the usage model an appliance draws from
type ApplianceType string

// Built-in appliance types
const (
	Refrigerator   ApplianceType = "Refrigerator"
	WashingMachine ApplianceType = "Washing Machine"
	Dishwasher     ApplianceType = "Dishwasher"
	Microwave      ApplianceType = "Microwave"
	CoffeeMaker    ApplianceType = "Coffee Maker"
	AirConditioner ApplianceType = "Air Conditioner"
)

// Appliance identifies one appliance and the type it is modeled as
type Appliance struct {
	ID   int           `json:"appliance_id" yaml:"id"`
	Name ApplianceType `json:"appliance_name" yaml:"name"`
}

// UsageReading represents one sampling interval of one appliance for one user
type UsageReading struct {
	Timestamp     time.Time     `json:"timestamp"` // Start of the sampling interval
	ApplianceID   int           `json:"appliance_id"`
	ApplianceName ApplianceType `json:"appliance_name"`
	UserID        string        `json:"user_id"`
	Usage         float64       `json:"usage"` // kWh for the interval, never negative
}

// DailyUsage represents a single day's summed usage
type DailyUsage struct {
	Date time.Time `json:"date"` // Midnight in the readings' location
	KWh  float64   `json:"kwh"`
}

// DailySeries is the per-day usage of one (appliance, user) pair, sorted by date.
// Days without readings are absent rather than zero.
type DailySeries struct {
	ApplianceID   int           `json:"appliance_id"`
	ApplianceName ApplianceType `json:"appliance_name"`
	UserID        string        `json:"user_id"`
	Points        []DailyUsage  `json:"points"`
}

// Len returns the number of days in the series
func (s DailySeries) Len() int {
	return len(s.Points)
}

// Sum returns the total usage over every day in the series
func (s DailySeries) Sum() float64 {
	var total float64
	for _, p := range s.Points {
		total += p.KWh
	}
	return total
}

// Dates returns the dates of the series in order
func (s DailySeries) Dates() []time.Time {
	dates := make([]time.Time, 0, len(s.Points))
	for _, p := range s.Points {
		dates = append(dates, p.Date)
	}
	return dates
}

// DateOf returns midnight of t's calendar day in t's own location
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateKey returns the civil date of t as YYYY-MM-DD, ignoring location
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
