package aggregate

import (
	"sort"

	"github.com/jgoulah/gridcast/pkg/models"
)

// Pair identifies one (appliance, user) combination in a raw table
type Pair struct {
	ApplianceID   int
	ApplianceName models.ApplianceType
	UserID        string
}

// Filter returns the readings belonging to one appliance and user, in input order
func Filter(readings []models.UsageReading, applianceID int, userID string) []models.UsageReading {
	var out []models.UsageReading
	for _, r := range readings {
		if r.ApplianceID == applianceID && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// Daily sums one pair's usage per calendar date of each timestamp, in the timestamp's own
// location. Readings for other pairs are ignored. Days without readings are absent.
func Daily(readings []models.UsageReading, applianceID int, userID string) models.DailySeries {
	series := models.DailySeries{
		ApplianceID: applianceID,
		UserID:      userID,
		Points:      []models.DailyUsage{},
	}

	// "YYYY-MM-DD" -> readings of that day
	byDay := make(map[string][]models.UsageReading)
	for _, r := range readings {
		if r.ApplianceID != applianceID || r.UserID != userID {
			continue
		}
		if series.ApplianceName == "" {
			series.ApplianceName = r.ApplianceName
		}
		key := models.DateKey(r.Timestamp)
		byDay[key] = append(byDay[key], r)
	}

	for _, day := range byDay {
		sorted := sortCanonical(day)
		series.Points = append(series.Points, models.DailyUsage{
			Date: models.DateOf(sorted[0].Timestamp),
			KWh:  sum(sorted),
		})
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return models.DateKey(series.Points[i].Date) < models.DateKey(series.Points[j].Date)
	})

	return series
}

// sortCanonical returns a copy of one day's readings ordered by instant, then UTC offset,
// then usage. Sums and the day's date are taken from this order so that neither depends on
// the order rows arrived in.
func sortCanonical(day []models.UsageReading) []models.UsageReading {
	sorted := make([]models.UsageReading, len(day))
	copy(sorted, day)
	sort.Slice(sorted, func(i, j int) bool {
		ti, tj := sorted[i].Timestamp, sorted[j].Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		_, oi := ti.Zone()
		_, oj := tj.Zone()
		if oi != oj {
			return oi < oj
		}
		return sorted[i].Usage < sorted[j].Usage
	})
	return sorted
}

func sum(readings []models.UsageReading) float64 {
	var total float64
	for _, r := range readings {
		total += r.Usage
	}
	return total
}

// Pairs lists the distinct (appliance, user) pairs in first-seen order
func Pairs(readings []models.UsageReading) []Pair {
	seen := make(map[Pair]bool)
	var pairs []Pair
	for _, r := range readings {
		p := Pair{ApplianceID: r.ApplianceID, ApplianceName: r.ApplianceName, UserID: r.UserID}
		if seen[p] {
			continue
		}
		seen[p] = true
		pairs = append(pairs, p)
	}
	return pairs
}

// DailyAll aggregates every pair in the table, in first-seen pair order
func DailyAll(readings []models.UsageReading) []models.DailySeries {
	pairs := Pairs(readings)
	out := make([]models.DailySeries, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Daily(readings, p.ApplianceID, p.UserID))
	}
	return out
}
