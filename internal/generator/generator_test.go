package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridcast/internal/usage"
	"github.com/jgoulah/gridcast/pkg/models"
)

var (
	start = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	testAppliances = []models.Appliance{
		{ID: 1, Name: models.AirConditioner},
		{ID: 2, Name: models.WashingMachine},
		{ID: 3, Name: models.Refrigerator},
	}
	testUsers = []string{"101", "102", "103"}
)

func testParams() Params {
	return Params{
		Start:      start,
		End:        start.AddDate(0, 0, 3),
		Interval:   15 * time.Minute,
		Appliances: testAppliances,
		Users:      testUsers,
		Seed:       42,
	}
}

func TestGrid(t *testing.T) {
	t.Run("inclusive of end", func(t *testing.T) {
		grid := Grid(start, start.Add(time.Hour), 15*time.Minute)
		require.Len(t, grid, 5)
		assert.Equal(t, start, grid[0])
		assert.Equal(t, start.Add(time.Hour), grid[4])
	})

	t.Run("end not on grid", func(t *testing.T) {
		grid := Grid(start, start.Add(50*time.Minute), 15*time.Minute)
		require.Len(t, grid, 4)
		assert.Equal(t, start.Add(45*time.Minute), grid[3])
	})

	t.Run("empty ranges", func(t *testing.T) {
		assert.Empty(t, Grid(start, start, time.Hour))
		assert.Empty(t, Grid(start, start.Add(-time.Hour), time.Hour))
		assert.Empty(t, Grid(start, start.Add(time.Hour), 0))
	})
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	g := New(usage.DefaultRegistry())
	p := testParams()

	readings, err := g.Generate(ctx, p)
	require.NoError(t, err)

	gridLen := len(Grid(p.Start, p.End, p.Interval))
	require.Len(t, readings, len(testAppliances)*len(testUsers)*gridLen)

	t.Run("non-negative", func(t *testing.T) {
		for _, r := range readings {
			assert.GreaterOrEqual(t, r.Usage, 0.0)
		}
	})

	t.Run("ordering", func(t *testing.T) {
		for i, a := range testAppliances {
			for j, u := range testUsers {
				base := (i*len(testUsers) + j) * gridLen
				for k := 0; k < gridLen; k++ {
					r := readings[base+k]
					assert.Equal(t, a.ID, r.ApplianceID)
					assert.Equal(t, a.Name, r.ApplianceName)
					assert.Equal(t, u, r.UserID)
					assert.Equal(t, p.Start.Add(time.Duration(k)*p.Interval), r.Timestamp)
				}
			}
		}
	})

	t.Run("refrigerator always on", func(t *testing.T) {
		count := 0
		for _, r := range readings {
			if r.ApplianceName == models.Refrigerator {
				count++
				assert.Greater(t, r.Usage, 0.0)
			}
		}
		assert.Equal(t, len(testUsers)*gridLen, count)
	})

	t.Run("deterministic", func(t *testing.T) {
		again, err := g.Generate(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, readings, again)
	})

	t.Run("parallel matches sequential", func(t *testing.T) {
		pp := p
		pp.Workers = 4
		parallel, err := g.Generate(ctx, pp)
		require.NoError(t, err)
		assert.Equal(t, readings, parallel)
	})

	t.Run("different seed differs", func(t *testing.T) {
		pp := p
		pp.Seed = 43
		other, err := g.Generate(ctx, pp)
		require.NoError(t, err)
		assert.NotEqual(t, readings, other)
	})

	t.Run("pair output independent of other pairs", func(t *testing.T) {
		pp := p
		pp.Appliances = testAppliances[2:]
		pp.Users = testUsers[1:2]
		single, err := g.Generate(ctx, pp)
		require.NoError(t, err)

		base := (2*len(testUsers) + 1) * gridLen
		assert.Equal(t, readings[base:base+gridLen], single)
	})
}

func TestWashingMachineMostlyZero(t *testing.T) {
	g := New(usage.DefaultRegistry())
	p := testParams()
	p.End = start.AddDate(0, 0, 30)
	p.Appliances = []models.Appliance{{ID: 2, Name: models.WashingMachine}}

	readings, err := g.Generate(context.Background(), p)
	require.NoError(t, err)

	zeros := 0
	for _, r := range readings {
		if r.Usage == 0 {
			zeros++
		}
	}
	assert.GreaterOrEqual(t, float64(zeros)/float64(len(readings)), 0.80)
}

func TestGenerateEmpty(t *testing.T) {
	ctx := context.Background()
	g := New(usage.DefaultRegistry())

	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"no users", func(p *Params) { p.Users = nil }},
		{"no appliances", func(p *Params) { p.Appliances = nil }},
		{"end equals start", func(p *Params) { p.End = p.Start }},
		{"end before start", func(p *Params) { p.End = p.Start.Add(-time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)
			readings, err := g.Generate(ctx, p)
			require.NoError(t, err)
			assert.Empty(t, readings)
		})
	}
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()
	g := New(usage.DefaultRegistry())

	t.Run("missing model", func(t *testing.T) {
		p := testParams()
		p.Appliances = append(p.Appliances, models.Appliance{ID: 9, Name: "Toaster"})
		_, err := g.Generate(ctx, p)
		assert.ErrorIs(t, err, usage.ErrMissingApplianceModel)
	})

	t.Run("missing model with no users", func(t *testing.T) {
		p := testParams()
		p.Users = nil
		p.Appliances = []models.Appliance{{ID: 9, Name: "Toaster"}}
		_, err := g.Generate(ctx, p)
		assert.ErrorIs(t, err, usage.ErrMissingApplianceModel)
	})

	t.Run("zero interval", func(t *testing.T) {
		p := testParams()
		p.Interval = 0
		_, err := g.Generate(ctx, p)
		assert.ErrorIs(t, err, models.ErrConfiguration)
	})

	t.Run("canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := g.Generate(cctx, testParams())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *Params)
		wantErr bool
	}{
		{"valid", func(p *Params) {}, false},
		{"end before start", func(p *Params) { p.End = p.Start.Add(-time.Minute) }, true},
		{"zero interval", func(p *Params) { p.Interval = 0 }, true},
		{"negative interval", func(p *Params) { p.Interval = -time.Minute }, true},
		{"no appliances", func(p *Params) { p.Appliances = nil }, true},
		{"no users", func(p *Params) { p.Users = []string{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPairSeed(t *testing.T) {
	a := models.Appliance{ID: 1, Name: models.AirConditioner}
	assert.Equal(t, PairSeed(1, a, "101"), PairSeed(1, a, "101"))
	assert.NotEqual(t, PairSeed(1, a, "101"), PairSeed(1, a, "102"))
	assert.NotEqual(t, PairSeed(1, a, "101"), PairSeed(2, a, "101"))
	assert.NotEqual(t, PairSeed(1, a, "101"), PairSeed(1, models.Appliance{ID: 2, Name: models.AirConditioner}, "101"))
}
