package generator

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/gridcast/internal/log"
	"github.com/jgoulah/gridcast/internal/usage"
	"github.com/jgoulah/gridcast/pkg/models"
)

// Params describes one generation pass
type Params struct {
	Start      time.Time
	End        time.Time
	Interval   time.Duration
	Appliances []models.Appliance
	Users      []string
	Seed       uint64
	Workers    int // Pairs generated concurrently (default: 1)
}

// Validate rejects parameters that cannot describe a useful run. Generate itself accepts
// empty ranges and entity sets; callers that need data call Validate first.
func (p Params) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: end %s is before start %s", models.ErrConfiguration, p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	if p.Interval <= 0 {
		return fmt.Errorf("%w: sampling interval must be positive (got %s)", models.ErrConfiguration, p.Interval)
	}
	if len(p.Appliances) == 0 {
		return fmt.Errorf("%w: at least one appliance is required", models.ErrConfiguration)
	}
	if len(p.Users) == 0 {
		return fmt.Errorf("%w: at least one user is required", models.ErrConfiguration)
	}
	return nil
}

// Grid returns start, start+interval, ... up to and including end.
// The grid is empty when end is not after start.
func Grid(start, end time.Time, interval time.Duration) []time.Time {
	if interval <= 0 || !end.After(start) {
		return nil
	}

	grid := make([]time.Time, 0, int(end.Sub(start)/interval)+1)
	for ts := start; !ts.After(end); ts = ts.Add(interval) {
		grid = append(grid, ts)
	}
	return grid
}

// Generator drives usage models across a sampling grid
type Generator struct {
	registry *usage.Registry
}

// New creates a generator drawing from the given registry
func New(registry *usage.Registry) *Generator {
	return &Generator{registry: registry}
}

// Generate produces one reading per (appliance, user, timestamp), grouped by appliance,
// then user, then timestamp. Every pair draws from its own seeded stream so the output does
// not depend on Workers.
func (g *Generator) Generate(ctx context.Context, p Params) ([]models.UsageReading, error) {
	if p.Interval <= 0 {
		return nil, fmt.Errorf("%w: sampling interval must be positive (got %s)", models.ErrConfiguration, p.Interval)
	}

	// resolve every model up front so a missing one fails before any reading is drawn
	resolved := make([]usage.Model, len(p.Appliances))
	for i, a := range p.Appliances {
		m, err := g.registry.Lookup(a.Name)
		if err != nil {
			return nil, fmt.Errorf("appliance %d: %w", a.ID, err)
		}
		resolved[i] = m
	}

	grid := Grid(p.Start, p.End, p.Interval)
	if len(grid) == 0 || len(p.Appliances) == 0 || len(p.Users) == 0 {
		return []models.UsageReading{}, nil
	}

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"generating readings",
		slog.Int("appliances", len(p.Appliances)),
		slog.Int("users", len(p.Users)),
		slog.Int("timestamps", len(grid)),
		slog.Int("workers", workers),
	)

	slots := make([][]models.UsageReading, len(p.Appliances)*len(p.Users))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, a := range p.Appliances {
		for j, user := range p.Users {
			idx := i*len(p.Users) + j
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				slots[idx] = generatePair(resolved[i], a, user, grid, PairSeed(p.Seed, a, user))
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	readings := make([]models.UsageReading, 0, len(slots)*len(grid))
	for _, s := range slots {
		readings = append(readings, s...)
	}
	return readings, nil
}

func generatePair(m usage.Model, a models.Appliance, user string, grid []time.Time, seed uint64) []models.UsageReading {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	out := make([]models.UsageReading, 0, len(grid))
	for _, ts := range grid {
		v := m.Draw(ts, src)
		if v < 0 {
			v = 0
		}
		out = append(out, models.UsageReading{
			Timestamp:     ts,
			ApplianceID:   a.ID,
			ApplianceName: a.Name,
			UserID:        user,
			Usage:         v,
		})
	}
	return out
}

// PairSeed derives the seed of one (appliance, user) stream from the run seed
func PairSeed(seed uint64, a models.Appliance, user string) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], seed)
	binary.LittleEndian.PutUint64(buf[8:], uint64(a.ID))

	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(string(a.Name))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(user)
	return d.Sum64()
}
