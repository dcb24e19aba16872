package usage

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Model draws the usage of one appliance for the sampling interval starting at ts.
// Draws must be non-negative and consume randomness only from src.
type Model interface {
	Draw(ts time.Time, src rand.Source) float64
}

// ModelFunc adapts a plain function to the Model interface
type ModelFunc func(ts time.Time, src rand.Source) float64

// Draw calls f(ts, src)
func (f ModelFunc) Draw(ts time.Time, src rand.Source) float64 {
	return f(ts, src)
}

// Band is a base load that applies to hours before Until (exclusive)
type Band struct {
	Until int     `yaml:"until"`
	Base  float64 `yaml:"base"`
}

// Profile is the stochastic model shared by the built-in appliances.
//
// An interval is first gated off with probability OffProbability, producing exactly zero.
// Otherwise the base load is picked from Bands by hour of day (Mean when there are no bands),
// scaled by WeekendScale on Saturday and Sunday, and the draw is |Normal(base, Sigma)|
// rounded to three decimals.
type Profile struct {
	Bands          []Band  `yaml:"bands,omitempty"`
	Mean           float64 `yaml:"mean,omitempty"`
	Sigma          float64 `yaml:"sigma"`
	WeekendScale   float64 `yaml:"weekend_scale,omitempty"` // 0 means unscaled
	OffProbability float64 `yaml:"off_probability,omitempty"`
}

// Draw implements Model
func (p Profile) Draw(ts time.Time, src rand.Source) float64 {
	if p.OffProbability > 0 {
		off := distuv.Bernoulli{P: p.OffProbability, Src: src}
		if off.Rand() == 1 {
			return 0
		}
	}

	n := distuv.Normal{Mu: p.Base(ts), Sigma: p.Sigma, Src: src}
	return round3(math.Abs(n.Rand()))
}

// Base returns the mean load for the interval starting at ts
func (p Profile) Base(ts time.Time) float64 {
	base := p.Mean
	if len(p.Bands) > 0 {
		hour := ts.Hour()
		base = p.Bands[len(p.Bands)-1].Base
		for _, b := range p.Bands {
			if hour < b.Until {
				base = b.Base
				break
			}
		}
	}

	if p.WeekendScale > 0 && isWeekend(ts) {
		base *= p.WeekendScale
	}
	return base
}

// Validate checks that the profile always produces finite, non-negative draws
func (p Profile) Validate() error {
	if p.Sigma < 0 {
		return fmt.Errorf("sigma must not be negative (got %v)", p.Sigma)
	}
	if p.OffProbability < 0 || p.OffProbability >= 1 {
		return fmt.Errorf("off_probability must be in [0, 1) (got %v)", p.OffProbability)
	}
	if p.WeekendScale < 0 {
		return fmt.Errorf("weekend_scale must not be negative (got %v)", p.WeekendScale)
	}
	if len(p.Bands) == 0 && p.Mean < 0 {
		return fmt.Errorf("mean must not be negative (got %v)", p.Mean)
	}

	prev := 0
	for i, b := range p.Bands {
		if b.Until <= prev || b.Until > 24 {
			return fmt.Errorf("band %d: until must be increasing and within (0, 24] (got %d)", i, b.Until)
		}
		if b.Base < 0 {
			return fmt.Errorf("band %d: base must not be negative (got %v)", i, b.Base)
		}
		prev = b.Until
	}
	if len(p.Bands) > 0 && prev != 24 {
		return fmt.Errorf("last band must end at hour 24 (got %d)", prev)
	}

	return nil
}

func isWeekend(ts time.Time) bool {
	wd := ts.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
