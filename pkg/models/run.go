package models

import "time"

// Run describes one stored generation pass
type Run struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Interval  time.Duration `json:"interval"`
	Seed      uint64        `json:"seed"`
	Readings  int           `json:"readings"` // Filled in when listing
}

// StoredMetrics are evaluation results saved against a run
type StoredMetrics struct {
	RunID       string    `json:"run_id"`
	ApplianceID int       `json:"appliance_id"`
	UserID      string    `json:"user_id"`
	Source      string    `json:"source"` // Forecast source that was evaluated
	Metrics     Metrics   `json:"metrics"`
	CreatedAt   time.Time `json:"created_at"`
}
